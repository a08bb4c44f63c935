package revhex

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// ShortInputError is returned when a wire file has fewer fields than required.
type ShortInputError struct {
	Want, Got int
}

func (e *ShortInputError) Error() string {
	return fmt.Sprintf("revhex: expected %d fields, got %d", e.Want, e.Got)
}

// ReadLines returns the trimmed non-blank lines of r.
func ReadLines(r io.Reader) ([]string, error) {
	return scanLines(r, false)
}

// ReadAllLines returns every trimmed line of r, blank ones included, for
// formats whose fields are identified by line number and may be empty.
func ReadAllLines(r io.Reader) ([]string, error) {
	return scanLines(r, true)
}

func scanLines(r io.Reader, keepBlank bool) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" && !keepBlank {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadFields decodes the first n fields of r, one per line. Extra lines are
// ignored.
func ReadFields(r io.Reader, n int) ([]*big.Int, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) < n {
		return nil, &ShortInputError{Want: n, Got: len(lines)}
	}
	fields := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		if fields[i], err = Decode(lines[i]); err != nil {
			return nil, fmt.Errorf("field %d: %w", i+1, err)
		}
	}
	return fields, nil
}

// DecodeList decodes a whitespace-separated list of values held on one line.
func DecodeList(line string) ([]*big.Int, error) {
	toks := strings.Fields(line)
	out := make([]*big.Int, 0, len(toks))
	for _, tok := range toks {
		v, err := Decode(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeList is the inverse of DecodeList.
func EncodeList(vals []*big.Int) string {
	toks := make([]string, len(vals))
	for i, v := range vals {
		toks[i] = Encode(v)
	}
	return strings.Join(toks, " ")
}

// WriteFields writes each value on its own line.
func WriteFields(w io.Writer, vals ...*big.Int) error {
	bw := bufio.NewWriter(w)
	for _, v := range vals {
		if _, err := bw.WriteString(Encode(v) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
