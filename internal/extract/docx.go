package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"
)

// ConvertToHTML converts docx bytes into an HTML fragment of <p>
// elements. Documents with content the converter cannot represent
// (drawings, tables) are rejected rather than silently degraded.
func ConvertToHTML(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open docx: %w", err)
	}

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("extract: open document.xml: %w", err)
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("extract: docx has no word/document.xml")
	}
	defer doc.Close()

	var out strings.Builder
	var paragraph strings.Builder
	inParagraph := false

	dec := xml.NewDecoder(doc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract: parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "drawing", "pict", "tbl":
				return "", fmt.Errorf("extract: docx contains unsupported %s element", t.Name.Local)
			case "p":
				inParagraph = true
				paragraph.Reset()
			case "t":
				if inParagraph {
					var text string
					if err := dec.DecodeElement(&text, &t); err != nil {
						return "", fmt.Errorf("extract: parse text run: %w", err)
					}
					paragraph.WriteString(text)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				if s := paragraph.String(); s != "" {
					out.WriteString("<p>")
					out.WriteString(html.EscapeString(s))
					out.WriteString("</p>")
				}
			}
		}
	}
	return out.String(), nil
}
