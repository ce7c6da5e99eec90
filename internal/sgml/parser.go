// internal/sgml/parser.go
//
// Parses aircraft maintenance manual files (iSpec 2200 SGML and S1000D
// XML) into task references and retrievable text chunks. The html
// tokenizer is forgiving enough for SGML's unclosed tags and uppercase
// markup, which trips strict XML decoders.
package sgml

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/techvna-coder/ata-wo-analyzer/internal/ata"
	"github.com/techvna-coder/ata-wo-analyzer/internal/common/errors"
)

// Format identifies the manual markup dialect.
type Format string

const (
	FormatISpec   Format = "ispec2200"
	FormatS1000D  Format = "s1000d"
	FormatUnknown Format = "unknown"
)

// Task is one maintenance task found in a manual file.
type Task struct {
	TaskNumber string
	ManualType string
	ATA04      string
	Title      string
}

// Chunk is a retrievable passage of task text.
type Chunk struct {
	ATA04      string
	TaskNumber string
	ManualType string
	Title      string
	Text       string
	Warnings   []string
}

// Document is the parsed content of one manual file.
type Document struct {
	Format Format
	Tasks  []Task
	Chunks []Chunk
}

// maxChunkRunes bounds chunk size so embeddings stay within model
// context limits.
const maxChunkRunes = 2000

// DetectFormat sniffs the markup dialect from the first kilobyte.
func DetectFormat(head []byte) Format {
	lower := strings.ToLower(string(head))
	switch {
	case strings.Contains(lower, "<dmodule"):
		return FormatS1000D
	case strings.Contains(lower, "<task"), strings.Contains(lower, "chapnbr"):
		return FormatISpec
	default:
		return FormatUnknown
	}
}

// Parser extracts tasks and chunks from manual markup. ManualType is
// stamped onto every extracted task (TSM, FIM or AMM, from the file's
// provenance).
type Parser struct {
	ManualType string
}

func NewParser(manualType string) *Parser {
	return &Parser{ManualType: strings.ToUpper(manualType)}
}

// Parse reads the whole stream and dispatches on the detected format.
func (p *Parser) Parse(r io.Reader, sourceFile string) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewManualParseFailedError(sourceFile, err)
	}

	head := raw
	if len(head) > 1024 {
		head = head[:1024]
	}

	format := DetectFormat(head)
	switch format {
	case FormatISpec:
		return p.parseISpec(raw, sourceFile)
	case FormatS1000D:
		return p.parseS1000D(raw, sourceFile)
	default:
		return nil, errors.NewManualParseFailedError(sourceFile,
			fmt.Errorf("unrecognized manual format"))
	}
}

func attrValue(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if strings.EqualFold(a.Key, name) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// parseISpec walks iSpec 2200 <TASK CHAPNBR SECTNBR SUBJNBR FUNC SEQ>
// elements, collecting the title, warnings and body text of each task.
func (p *Parser) parseISpec(raw []byte, sourceFile string) (*Document, error) {
	doc := &Document{Format: FormatISpec}
	tz := html.NewTokenizer(strings.NewReader(string(raw)))

	var (
		cur       *Task
		curText   strings.Builder
		warnings  []string
		inTitle   bool
		inWarning bool
	)

	flush := func() {
		if cur == nil {
			return
		}
		doc.Tasks = append(doc.Tasks, *cur)
		text := collapseWhitespace(curText.String())
		if text != "" {
			for _, part := range splitChunks(text) {
				doc.Chunks = append(doc.Chunks, Chunk{
					ATA04:      cur.ATA04,
					TaskNumber: cur.TaskNumber,
					ManualType: cur.ManualType,
					Title:      cur.Title,
					Text:       part,
					Warnings:   warnings,
				})
			}
		}
		cur = nil
		curText.Reset()
		warnings = nil
	}

	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			if tz.Err() == io.EOF {
				break
			}
			return nil, errors.NewManualParseFailedError(sourceFile, tz.Err())
		}

		tok := tz.Token()
		name := strings.ToLower(tok.Data)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			switch name {
			case "task":
				flush()
				chap := attrValue(tok, "chapnbr")
				sect := attrValue(tok, "sectnbr")
				subj := attrValue(tok, "subjnbr")
				if chap == "" || sect == "" {
					continue
				}
				if subj == "" {
					subj = "00"
				}
				task := fmt.Sprintf("%s-%s-%s", chap, sect, subj)
				if fn := attrValue(tok, "func"); fn != "" {
					task += "-" + fn
					if seq := attrValue(tok, "seq"); seq != "" {
						task += "-" + seq
					}
				}
				cur = &Task{
					TaskNumber: ata.NormalizeTask(task),
					ManualType: p.ManualType,
					ATA04:      fmt.Sprintf("%s-%s", chap, sect),
				}
			case "title":
				inTitle = cur != nil && cur.Title == ""
			case "warning":
				inWarning = cur != nil
			}
		case html.EndTagToken:
			switch name {
			case "task":
				flush()
			case "title":
				inTitle = false
			case "warning":
				inWarning = false
			}
		case html.TextToken:
			text := strings.TrimSpace(tok.Data)
			if text == "" || cur == nil {
				continue
			}
			switch {
			case inTitle:
				cur.Title = text
				inTitle = false
			case inWarning:
				warnings = append(warnings, text)
			default:
				curText.WriteString(text)
				curText.WriteString(" ")
			}
		}
	}
	flush()

	return doc, nil
}

// parseS1000D extracts data modules: the dmCode element carries the
// ATA chapter in systemCode/subSystemCode, the techName its title.
func (p *Parser) parseS1000D(raw []byte, sourceFile string) (*Document, error) {
	doc := &Document{Format: FormatS1000D}
	tz := html.NewTokenizer(strings.NewReader(string(raw)))

	var (
		cur        *Task
		curText    strings.Builder
		warnings   []string
		inTechName bool
		inWarning  bool
	)

	flush := func() {
		if cur == nil || cur.ATA04 == "" {
			cur = nil
			curText.Reset()
			warnings = nil
			return
		}
		doc.Tasks = append(doc.Tasks, *cur)
		text := collapseWhitespace(curText.String())
		if text != "" {
			for _, part := range splitChunks(text) {
				doc.Chunks = append(doc.Chunks, Chunk{
					ATA04:      cur.ATA04,
					TaskNumber: cur.TaskNumber,
					ManualType: cur.ManualType,
					Title:      cur.Title,
					Text:       part,
					Warnings:   warnings,
				})
			}
		}
		cur = nil
		curText.Reset()
		warnings = nil
	}

	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			if tz.Err() == io.EOF {
				break
			}
			return nil, errors.NewManualParseFailedError(sourceFile, tz.Err())
		}

		tok := tz.Token()
		name := strings.ToLower(tok.Data)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			switch name {
			case "dmodule":
				flush()
				cur = &Task{ManualType: p.ManualType}
			case "dmcode":
				if cur == nil {
					continue
				}
				system := attrValue(tok, "systemcode")
				sub := attrValue(tok, "subsystemcode")
				subsub := attrValue(tok, "subsubsystemcode")
				if system == "" || sub == "" {
					continue
				}
				cur.ATA04 = fmt.Sprintf("%s-%s%s", system, sub, subsub)
				if len(sub+subsub) == 1 {
					cur.ATA04 = fmt.Sprintf("%s-%s%s0", system, sub, subsub)
				}
				subject := attrValue(tok, "assycode")
				if subject == "" {
					subject = "00"
				}
				cur.TaskNumber = ata.NormalizeTask(
					fmt.Sprintf("%s-%s%s-%s", system, sub, subsub, subject))
			case "techname":
				inTechName = cur != nil && cur.Title == ""
			case "warning":
				inWarning = cur != nil
			}
		case html.EndTagToken:
			switch name {
			case "dmodule":
				flush()
			case "techname":
				inTechName = false
			case "warning":
				inWarning = false
			}
		case html.TextToken:
			text := strings.TrimSpace(tok.Data)
			if text == "" || cur == nil {
				continue
			}
			switch {
			case inTechName:
				cur.Title = text
				inTechName = false
			case inWarning:
				warnings = append(warnings, text)
			default:
				curText.WriteString(text)
				curText.WriteString(" ")
			}
		}
	}
	flush()

	return doc, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// splitChunks slices long text on rune boundaries so no chunk exceeds
// maxChunkRunes.
func splitChunks(text string) []string {
	runes := []rune(text)
	if len(runes) <= maxChunkRunes {
		return []string{text}
	}
	var parts []string
	for start := 0; start < len(runes); start += maxChunkRunes {
		end := start + maxChunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
