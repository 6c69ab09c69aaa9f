package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
)

// ruMonths maps a zero-padded month number to its Russian display name.
var ruMonths = map[string]string{
	"01": "Январь", "02": "Февраль", "03": "Март", "04": "Апрель",
	"05": "Май", "06": "Июнь", "07": "Июль", "08": "Август",
	"09": "Сентябрь", "10": "Октябрь", "11": "Ноябрь", "12": "Декабрь",
}

var ymPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ReportFile is one stored PDF report.
type ReportFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ReportMonth groups the report files of one calendar month.
type ReportMonth struct {
	Key   string       `json:"key"`
	Title string       `json:"title"`
	Files []ReportFile `json:"files"`
}

// ReportsService manages the monthly PDF report archive on local disk.
// Folders are named YYYY-MM; only .pdf files are listed.
type ReportsService struct {
	root   string
	logger *logging.ChanneledLogger
}

// NewReportsService creates the archive service, making sure the root
// directory exists.
func NewReportsService(root string, logger *logging.ChanneledLogger) (*ReportsService, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &ReportsService{root: root, logger: logger}, nil
}

// monthTitle renders a folder name like "2025-09" as "Сентябрь 2025".
// Folders that do not follow the YYYY-MM pattern keep their raw name.
func monthTitle(key string) string {
	parts := strings.Split(key, "-")
	if len(parts) != 2 {
		return key
	}
	month, ok := ruMonths[parts[1]]
	if !ok {
		return key
	}
	return month + " " + parts[0]
}

// List returns every month that holds at least one PDF, newest month first.
func (s *ReportsService) List() ([]ReportMonth, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []ReportMonth{}, nil
		}
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	months := make([]ReportMonth, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		files, err := s.listMonth(entry.Name())
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}

		months = append(months, ReportMonth{
			Key:   entry.Name(),
			Title: monthTitle(entry.Name()),
			Files: files,
		})
	}

	sort.Slice(months, func(i, j int) bool { return months[i].Key > months[j].Key })
	return months, nil
}

func (s *ReportsService) listMonth(key string) ([]ReportFile, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, key))
	if err != nil {
		return nil, fmt.Errorf("failed to read report month %s: %w", key, err)
	}

	files := make([]ReportFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		files = append(files, ReportFile{
			Name: entry.Name(),
			URL:  "/static/reports/" + key + "/" + entry.Name(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Save stores an uploaded PDF under its month folder. The filename is
// sanitized so a crafted name cannot escape the archive root.
func (s *ReportsService) Save(ym, filename string, content io.Reader) error {
	if !ymPattern.MatchString(ym) {
		return fmt.Errorf("invalid month key %q, expected YYYY-MM", ym)
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return fmt.Errorf("only .pdf files are accepted")
	}

	safe := sanitizeFilename(filename)
	dir := filepath.Join(s.root, ym)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report month %s: %w", ym, err)
	}

	dst, err := os.Create(filepath.Join(dir, safe))
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, content); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	if s.logger != nil {
		s.logger.System().Info("Report stored", "month", ym, "file", safe)
	}
	return nil
}

// Delete removes one report file and prunes the month folder when it ends
// up empty. Returns os.ErrNotExist when the file is absent.
func (s *ReportsService) Delete(ym, name string) error {
	if !ymPattern.MatchString(ym) {
		return fmt.Errorf("invalid month key %q, expected YYYY-MM", ym)
	}

	target := filepath.Join(s.root, ym, sanitizeFilename(name))
	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}
		return fmt.Errorf("failed to stat report file: %w", err)
	}

	if err := os.Remove(target); err != nil {
		return fmt.Errorf("failed to delete report file: %w", err)
	}

	// Prune the month folder if that was the last file.
	dir := filepath.Dir(target)
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		os.Remove(dir)
	}

	if s.logger != nil {
		s.logger.System().Info("Report deleted", "month", ym, "file", name)
	}
	return nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return name
}
