// internal/crawl/urls.go
package crawl

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/valpere/FormScrapexter/internal/utils"
)

// LoadURLs reads the URL list at path
func LoadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeInvalidInput, "failed to open URL file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	defer f.Close()

	urls, err := ReadURLs(f)
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeInvalidInput, "failed to read URL file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return urls, nil
}

// ReadURLs returns one URL per line, skipping blank lines and lines
// starting with '#'. Order is preserved.
func ReadURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}
