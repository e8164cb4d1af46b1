package library

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// YearCount pairs a publication year with its entry count.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// RecentAddition summarizes one of the latest additions.
type RecentAddition struct {
	CitationKey string `json:"citation_key"`
	Title       string `json:"title"`
	AddedDate   string `json:"added_date"`
}

// Stats summarizes the library, cross-checked against the filesystem.
type Stats struct {
	TotalEntries       int              `json:"total_entries"`
	DownloadedPDFs     int              `json:"downloaded_pdfs"`
	PDFPercentage      float64          `json:"pdf_percentage"`
	SummariesGenerated int              `json:"summaries_generated"`
	SummaryPercentage  float64          `json:"summary_percentage"`
	PDFCountFilesystem int              `json:"pdf_count_filesystem"`
	PDFSizeBytes       int64            `json:"pdf_size_bytes"`
	PDFSizeMB          float64          `json:"pdf_size_mb"`
	Sources            map[string]int   `json:"sources"`
	Years              []YearCount      `json:"years"`
	OldestYear         int              `json:"oldest_year,omitempty"`
	NewestYear         int              `json:"newest_year,omitempty"`
	RecentAdditions    []RecentAddition `json:"recent_additions"`
}

// Stats computes library statistics. PDFs present in data/pdfs/ but not
// recorded on any entry still show up in PDFCountFilesystem, which is how
// orphaned PDFs surface.
func (idx *Index) Stats() Stats {
	stats := Stats{
		TotalEntries: len(idx.entries),
		Sources:      make(map[string]int),
	}

	yearCounts := make(map[int]int)
	for _, entry := range idx.entries {
		if idx.HasPDF(entry) {
			stats.DownloadedPDFs++
		}
		if _, err := os.Stat(idx.cfg.SummaryPath(entry.CitationKey)); err == nil {
			stats.SummariesGenerated++
		}
		if entry.Source != "" {
			stats.Sources[entry.Source]++
		}
		if entry.Year > 0 {
			yearCounts[entry.Year]++
			if stats.OldestYear == 0 || entry.Year < stats.OldestYear {
				stats.OldestYear = entry.Year
			}
			if entry.Year > stats.NewestYear {
				stats.NewestYear = entry.Year
			}
		}
	}

	if stats.TotalEntries > 0 {
		stats.PDFPercentage = 100 * float64(stats.DownloadedPDFs) / float64(stats.TotalEntries)
		stats.SummaryPercentage = 100 * float64(stats.SummariesGenerated) / float64(stats.TotalEntries)
	}

	for year, count := range yearCounts {
		stats.Years = append(stats.Years, YearCount{Year: year, Count: count})
	}
	sort.Slice(stats.Years, func(i, j int) bool { return stats.Years[i].Year > stats.Years[j].Year })

	// Filesystem cross-check over the PDF directory.
	if files, err := os.ReadDir(idx.cfg.PDFDirPath()); err == nil {
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".pdf") {
				continue
			}
			stats.PDFCountFilesystem++
			if info, err := f.Info(); err == nil {
				stats.PDFSizeBytes += info.Size()
			}
		}
	}
	stats.PDFSizeMB = float64(stats.PDFSizeBytes) / (1024 * 1024)

	stats.RecentAdditions = idx.recentAdditions(5)
	return stats
}

// recentAdditions returns the n most recently added entries, newest first.
func (idx *Index) recentAdditions(n int) []RecentAddition {
	entries := idx.ListEntries()
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].AddedDate != entries[j].AddedDate {
			return entries[i].AddedDate > entries[j].AddedDate
		}
		return entries[i].CitationKey < entries[j].CitationKey
	})

	recent := make([]RecentAddition, 0, n)
	for _, entry := range entries {
		if len(recent) == n {
			break
		}
		recent = append(recent, RecentAddition{
			CitationKey: entry.CitationKey,
			Title:       entry.Title,
			AddedDate:   entry.AddedDate,
		})
	}
	return recent
}

// OrphanedPDFs returns citation keys inferred from PDF files on disk that
// have no library record.
func (idx *Index) OrphanedPDFs() []string {
	var orphans []string
	files, err := os.ReadDir(idx.cfg.PDFDirPath())
	if err != nil {
		return nil
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".pdf") {
			continue
		}
		key := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		if _, ok := idx.entries[key]; !ok {
			orphans = append(orphans, key)
		}
	}
	sort.Strings(orphans)
	return orphans
}
