package fileserver

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Placeholder is shown for sizes and timestamps that are unknown or do not
// apply.
const Placeholder = "-"

// TimeLayout is the listing timestamp format. Times are rendered in UTC.
const TimeLayout = "2006-01-02 15:04:05"

// Entry is one row of a directory index.
type Entry struct {
	Name     string
	IsDir    bool
	Size     string
	Modified string
	Link     string
}

// List enumerates the direct children of dir. A child whose metadata cannot
// be read is still listed with placeholder size and time. linkPrefix is the
// URL prefix prepended to each child's root-relative path.
func (r *Resolver) List(dir, linkPrefix string) ([]Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		full := filepath.Join(dir, de.Name())
		e := Entry{
			Name:     de.Name(),
			IsDir:    de.IsDir(),
			Size:     Placeholder,
			Modified: Placeholder,
			Link:     EscapeLink(linkPrefix + "/" + r.Rel(full)),
		}

		if info, err := os.Stat(full); err == nil {
			e.IsDir = info.IsDir()
			e.Modified = FormatTime(info.ModTime())
			if !e.IsDir {
				e.Size = FormatSize(info.Size())
			}
		}

		entries = append(entries, e)
	}

	SortEntries(entries)
	return entries, nil
}

// SortEntries orders directories before files and names by locale collation
// within each group. Names that collate equal fall back to byte order so the
// result is deterministic.
func SortEntries(entries []Entry) {
	col := collate.New(language.Und)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c < 0
		}
		return a.Name < b.Name
	})
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize renders n bytes in base-1024 units rounded to two decimals,
// e.g. "0 B", "512 B", "1.5 KB", "2.25 MB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	i, div := 0, int64(1)
	for i < len(sizeUnits)-1 && n >= div*1024 {
		i++
		div *= 1024
	}
	v := math.Round(float64(n)/float64(div)*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// EscapeLink percent-encodes each segment of a slash-separated URL path.
func EscapeLink(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

// FormatTime renders t in the listing timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
