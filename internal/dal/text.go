package dal

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// TextBackend reads plain text files. Blank lines separate paragraphs.
type TextBackend struct{}

func (b *TextBackend) ReadFile(path string) ([]RawBlock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open text: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var blocks []RawBlock
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		blocks = append(blocks, RawBlock{
			Kind: RawParagraph,
			Runs: []RawRun{{Text: current.String()}},
		})
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// AppendText appends a paragraph to a plain text file, separated from
// existing content by a blank line. The write happens under the path lock.
func (s *Store) AppendText(path, text string) error {
	path = s.Resolve(path)
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read text: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open text: %w", err)
	}
	defer f.Close()

	sep := ""
	if len(existing) > 0 {
		sep = "\n"
		if existing[len(existing)-1] != '\n' {
			sep = "\n\n"
		}
	}
	_, err = f.WriteString(sep + text + "\n")
	return err
}
