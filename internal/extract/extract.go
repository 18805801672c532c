// Package extract turns files of the supported formats into the plain text
// the indexer embeds. Unsupported formats degrade to a filename stub so a
// file can still be found by name.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// Content extracts the indexable text of a file. The result opens with a
// "Filename:" line so the embedding also matches searches by name. An empty
// string with a nil error means the file holds no indexable text.
func Content(path string) (string, error) {
	var text string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".log", ".csv", ".json", ".yaml", ".yml", ".xml", ".html", ".htm":
		text, err = readText(path)
	case ".pdf":
		text, err = readPDF(path)
	case ".docx":
		text, err = readDOCX(path)
	case ".xlsx":
		text, err = readXLSX(path)
	case ".ods":
		text, err = readODS(path)
	default:
		// Nothing to extract; index the name so the file stays findable.
		return fmt.Sprintf("File: %s", filepath.Base(path)), nil
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return fmt.Sprintf("Filename: %s\n\n%s", filepath.Base(path), text), nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// One broken page should not lose the rest of the document.
			log.Debug().Err(err).Str("path", path).Int("page", i).Msg("skipping unreadable pdf page")
			continue
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func readDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	// GetContent returns the raw document XML; pull the text runs out.
	return extractTextFromXML(r.Editable().GetContent(), "<w:t"), nil
}

func readXLSX(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		text.WriteString("\n")
	}
	return text.String(), nil
}

func readODS(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		text.WriteString("\n")
	}
	return text.String(), nil
}

// extractTextFromXML collects the text between occurrences of the given
// opening tag prefix and its matching close tag. The prefix form handles
// tags with attributes, e.g. `<w:t xml:space="preserve">`.
func extractTextFromXML(xmlContent, openTag string) string {
	closeTag := "</" + openTag[1:] + ">"
	var text strings.Builder
	parts := strings.Split(xmlContent, openTag)
	for i, part := range parts {
		if i == 0 || part == "" {
			continue
		}
		// Skip longer tags sharing the prefix, e.g. <w:tbl>.
		if part[0] != '>' && part[0] != ' ' {
			continue
		}
		start := strings.Index(part, ">")
		if start < 0 {
			continue
		}
		end := strings.Index(part, closeTag)
		if end < start {
			continue
		}
		text.WriteString(part[start+1 : end])
		text.WriteString(" ")
	}
	return text.String()
}
