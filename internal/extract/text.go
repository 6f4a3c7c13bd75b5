package extract

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kettleby/slate/internal/media"
)

var languageByExtension = map[string]string{
	".py": "python", ".sh": "shell", ".bat": "batch", ".ps1": "powershell",
	".cpp": "c++", ".c": "c", ".h": "c", ".hpp": "c++", ".rs": "rust",
	".go": "go", ".java": "java", ".cs": "c#",
	".html": "html", ".css": "css", ".js": "javascript", ".ts": "typescript",
	".jsx": "javascript", ".tsx": "typescript", ".vue": "vue",
	".glsl": "glsl", ".hlsl": "hlsl", ".vert": "glsl", ".frag": "glsl",
	".shader": "shader",
	".json":   "json", ".yaml": "yaml", ".yml": "yaml", ".toml": "toml",
	".ini": "ini", ".xml": "xml",
}

// Plain-text document formats we can count; binary documents (pdf, doc,
// ...) yield size-only records.
var plainTextDocumentExtensions = map[string]bool{
	".txt": true, ".md": true, ".rtf": true,
}

// Code counts lines and tags the language by extension.
func Code(localPath string) *media.Record {
	record := media.NewRecord(localPath, media.KindCode)

	ext := strings.ToLower(filepath.Ext(localPath))
	if language, ok := languageByExtension[ext]; ok {
		record.Language = &language
	}

	lines, err := countLines(localPath)
	if err != nil {
		record.Error = err.Error()
		return record
	}

	record.LineCount = &lines
	return record
}

// Spreadsheet counts rows and the widest column span of delimited text
// formats. Binary workbook formats are recorded size-only.
func Spreadsheet(localPath string) *media.Record {
	record := media.NewRecord(localPath, media.KindSpreadsheet)

	ext := strings.ToLower(filepath.Ext(localPath))
	if ext != ".csv" && ext != ".tsv" {
		return record
	}

	file, err := os.Open(localPath)
	if err != nil {
		record.Error = fmt.Sprintf("failed to open spreadsheet: %v", err)
		return record
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	if ext == ".tsv" {
		reader.Comma = '\t'
	}

	rows, columns := 0, 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			record.Error = fmt.Sprintf("failed to parse spreadsheet: %v", err)
			return record
		}

		rows++
		if len(fields) > columns {
			columns = len(fields)
		}
	}

	record.RowCount = &rows
	record.ColumnCount = &columns
	return record
}

// Document counts lines and words of plain-text documents.
func Document(localPath string) *media.Record {
	record := media.NewRecord(localPath, media.KindDocument)

	ext := strings.ToLower(filepath.Ext(localPath))
	if !plainTextDocumentExtensions[ext] {
		return record
	}

	file, err := os.Open(localPath)
	if err != nil {
		record.Error = fmt.Sprintf("failed to open document: %v", err)
		return record
	}
	defer file.Close()

	lines, words := 0, 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines++
		words += len(strings.Fields(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		record.Error = fmt.Sprintf("failed to read document: %v", err)
		return record
	}

	record.LineCount = &lines
	record.WordCount = &words
	return record
}

// Cache tags the simulation-cache flavour; the files themselves are
// opaque binary blobs.
func Cache(localPath string) *media.Record {
	record := media.NewRecord(localPath, media.KindCache)

	kind := media.CacheKindForExtension(filepath.Ext(localPath))
	record.CacheKind = &kind
	return record
}

func countLines(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	lines := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to count lines: %w", err)
	}

	return lines, nil
}
