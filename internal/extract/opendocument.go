package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const odfContentPart = "content.xml"

// extractODP handles OpenDocument presentations.
func extractODP(content []byte) (string, error) {
	return extractOpenDocument("ODP", content)
}

// extractODS handles OpenDocument spreadsheets. Each cell paragraph becomes one line.
func extractODS(content []byte) (string, error) {
	return extractOpenDocument("ODS", content)
}

// extractOpenDocument returns the text of every text:p and text:h element of
// content.xml in document order, one per line. Spans nested in a paragraph
// stay on its line; text:s, text:tab and text:line-break become spaces.
func extractOpenDocument(kind string, content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract %s: not a zip: %w", kind, err)
	}
	f := findZipFile(zr, odfContentPart)
	if f == nil {
		return "", fmt.Errorf("extract %s: %s not found", kind, odfContentPart)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("extract %s: open %s: %w", kind, odfContentPart, err)
	}
	defer rc.Close()

	var (
		lines   []string
		current strings.Builder
		depth   int // open p, h and span elements
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract %s: parse %s: %w", kind, odfContentPart, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p", "h", "span":
				depth++
			case "s", "tab", "line-break":
				if depth > 0 {
					current.WriteByte(' ')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p", "h", "span":
				depth--
				if depth == 0 {
					if s := strings.TrimSpace(current.String()); s != "" {
						lines = append(lines, s)
					}
					current.Reset()
				}
			}
		case xml.CharData:
			if depth > 0 {
				current.Write(t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
