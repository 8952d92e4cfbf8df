// Package parser splits uploaded guidance documents into retrievable passages.
package parser

import (
	"bufio"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Passage is one stored piece of a guide.
type Passage struct {
	Title   string
	Content string
}

// Limits bounds passage sizes in bytes.
type Limits struct {
	// MinSize: smaller sections merge into the previous passage
	MinSize int
	// MaxSize: larger sections are split at paragraphs, then sentences
	MaxSize int
	// TargetSize: sentence packing target when a paragraph exceeds MaxSize
	TargetSize int
}

// DefaultLimits returns sizes that fit comfortably in a prompt's reference block.
func DefaultLimits() Limits {
	return Limits{MinSize: 120, MaxSize: 1000, TargetSize: 600}
}

// section is a heading and the text below it.
type section struct {
	path    string
	content string
}

// SplitGuide turns a guide file into passages. Markdown files are split per
// heading and titled "<doc title> > <heading path>"; other files are split on
// blank lines and titled with the file name.
func SplitGuide(filename, content string, lim Limits) []Passage {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".md" && ext != ".markdown" {
		var out []Passage
		for _, chunk := range splitParagraphs(content, lim) {
			out = append(out, Passage{Title: filename, Content: chunk})
		}
		return out
	}

	title, body := frontmatterTitle(content)
	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	var out []Passage
	for _, s := range parseSections(body) {
		passageTitle := title
		if s.path != "" {
			passageTitle = title + " > " + s.path
		}
		if len(s.content) <= lim.MaxSize {
			if len(s.content) < lim.MinSize && len(out) > 0 {
				last := &out[len(out)-1]
				last.Content += "\n\n" + s.content
				continue
			}
			out = append(out, Passage{Title: passageTitle, Content: s.content})
			continue
		}
		for _, chunk := range splitParagraphs(s.content, lim) {
			out = append(out, Passage{Title: passageTitle, Content: chunk})
		}
	}
	return out
}

// frontmatterTitle strips a YAML front matter block and returns its title.
// Malformed front matter is kept as body text.
func frontmatterTitle(content string) (title, body string) {
	if !strings.HasPrefix(content, "---\n") {
		return "", content
	}
	end := strings.Index(content[4:], "\n---")
	if end < 0 {
		return "", content
	}
	var fm struct {
		Title string `yaml:"title"`
		Name  string `yaml:"name"`
	}
	if err := yaml.Unmarshal([]byte(content[4:4+end]), &fm); err != nil {
		return "", content
	}
	body = strings.TrimPrefix(content[4+end+4:], "\n")
	if fm.Title != "" {
		return fm.Title, body
	}
	return fm.Name, body
}

// parseSections splits markdown by headings. Text before the first heading
// becomes a section with an empty path. Empty sections are dropped.
func parseSections(content string) []section {
	var sections []section
	var path []string
	var levels []int
	current := section{}
	var b strings.Builder

	flush := func() {
		current.content = strings.TrimSpace(b.String())
		if current.content != "" {
			sections = append(sections, current)
		}
		b.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		match := headingRegex.FindStringSubmatch(line)
		if match == nil {
			b.WriteString(line)
			b.WriteString("\n")
			continue
		}

		flush()
		level := len(match[1])
		for len(levels) > 0 && levels[len(levels)-1] >= level {
			path = path[:len(path)-1]
			levels = levels[:len(levels)-1]
		}
		path = append(path, strings.TrimSpace(match[2]))
		levels = append(levels, level)
		current = section{path: strings.Join(path, " > ")}
	}
	flush()
	return sections
}

// splitParagraphs packs blank-line separated paragraphs into chunks of at
// most MaxSize; a paragraph longer than that is split at sentence ends.
func splitParagraphs(content string, lim Limits) []string {
	var chunks []string
	var b strings.Builder

	emit := func() {
		if b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
		}
	}

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > lim.MaxSize {
			emit()
			chunks = append(chunks, packSentences(para, lim.TargetSize)...)
			continue
		}
		if b.Len() > 0 && b.Len()+2+len(para) > lim.MaxSize {
			emit()
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(para)
	}
	emit()
	return chunks
}

// packSentences groups sentences into chunks of roughly target bytes.
func packSentences(text string, target int) []string {
	var chunks []string
	var b strings.Builder
	for _, s := range splitSentences(text) {
		if b.Len() > 0 && b.Len()+1+len(s) > target {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// splitSentences breaks after '.', '!' or '?' followed by whitespace, except
// after a single capital letter ("e.g. J. Smith").
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !isSpace(runes[i+1]) {
			continue
		}
		if r == '.' && i >= 1 && isUpper(runes[i-1]) && (i == 1 || isSpace(runes[i-2])) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isSpace(r rune) bool { return r == ' ' || r == '\n' || r == '\t' }

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
