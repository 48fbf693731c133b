// Package registry finds, downloads and unpacks the open-data archives the
// court registry publishes, and feeds their CSV files to the importer.
package registry

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var publishedDatePattern = regexp.MustCompile(`(\d{2}\.\d{2}\.\d{4})`)

// Anchor is a link on a listing page with the publication date found near it,
// in DD.MM.YYYY form, or "" when none was found.
type Anchor struct {
	Href string
	Date string
}

// PageScan is what one listing page contributed.
type PageScan struct {
	Links []string
	Years []int
}

// PageURL fills the {page} placeholder of a listing URL template.
func PageURL(template string, page int) string {
	return strings.ReplaceAll(template, "{page}", strconv.Itoa(page))
}

// ScanAnchors keeps ZIP links published in year, resolved against base.
// seen is updated so repeated links across pages are returned once.
func ScanAnchors(base *url.URL, anchors []Anchor, year int, seen map[string]struct{}) PageScan {
	var scan PageScan
	for _, a := range anchors {
		ref, err := url.Parse(strings.TrimSpace(a.Href))
		if err != nil {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(ref.Path), ".zip") {
			continue
		}
		full := ref.String()
		if base != nil {
			full = base.ResolveReference(ref).String()
		}
		if _, dup := seen[full]; dup {
			continue
		}

		m := publishedDatePattern.FindString(a.Date)
		if m == "" {
			continue
		}
		published, err := time.Parse("02.01.2006", m)
		if err != nil {
			continue
		}
		scan.Years = append(scan.Years, published.Year())

		if published.Year() == year {
			seen[full] = struct{}{}
			scan.Links = append(scan.Links, full)
		}
	}
	return scan
}

// Done reports whether paging should stop after this page: the listing is
// newest-first, so a page whose newest archive predates year ends the search,
// as does a page with no dated archives at all.
func (s PageScan) Done(year int) bool {
	if len(s.Years) == 0 {
		return len(s.Links) == 0
	}
	newest := s.Years[0]
	for _, y := range s.Years[1:] {
		if y > newest {
			newest = y
		}
	}
	return newest < year
}

// ArchiveName derives a local file name from an archive URL.
func ArchiveName(rawURL string, now time.Time) string {
	if u, err := url.Parse(rawURL); err == nil {
		if name := path.Base(u.Path); name != "" && name != "/" && name != "." {
			return name
		}
	}
	return "archive_" + strconv.FormatInt(now.Unix(), 10) + ".zip"
}
