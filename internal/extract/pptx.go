package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const pptxSlidePrefix = "ppt/slides/slide"

// extractPPTX collects the <a:t> runs of every slide in slide order. Each
// drawing paragraph becomes one line.
func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract PPTX: not a zip: %w", err)
	}

	var slides []*zip.File
	for _, f := range zr.File {
		if _, ok := slideNumber(f.Name); ok {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool {
		a, _ := slideNumber(slides[i].Name)
		b, _ := slideNumber(slides[j].Name)
		return a < b
	})

	var lines []string
	for _, f := range slides {
		paras, err := slideParagraphs(f)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		lines = append(lines, paras...)
	}
	return strings.Join(lines, "\n"), nil
}

// slideNumber parses N from ppt/slides/slideN.xml.
func slideNumber(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, pptxSlidePrefix)
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, ".xml")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}

func slideParagraphs(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	var (
		paras   []string
		current strings.Builder
		inText  bool
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			paras = append(paras, s)
		}
		current.Reset()
	}
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "br":
				current.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	flush()
	return paras, nil
}
