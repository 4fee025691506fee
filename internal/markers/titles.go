package markers

import (
	"bufio"
	"errors"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	sectionRe = regexp.MustCompile(`^#\s*(\d+)\s*$`)
	titleRe   = regexp.MustCompile(`^#title:\s*(.*?)\s*$`)
)

// LoadTitles reads per-slide titles from a notes file. Sections start with
// "# NN" and a "#title: text" line inside a section names that slide.
// A missing file yields an empty map.
func LoadTitles(path string) (map[int]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[int]string{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return ReadTitles(f)
}

// ReadTitles parses notes content from r.
func ReadTitles(r io.Reader) (map[int]string, error) {
	titles := make(map[int]string)
	section := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			section, _ = strconv.Atoi(m[1])
			continue
		}
		if m := titleRe.FindStringSubmatch(line); m != nil && section > 0 && m[1] != "" {
			titles[section] = m[1]
		}
	}
	return titles, sc.Err()
}
