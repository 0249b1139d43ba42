package internal

import (
	"bufio"
	"io"

	"DepScanner/internal/scanner"
)

// checkEvery is how many lines are read between cancellation checks.
const checkEvery = 256

// Scan streams the shared content line by line and reports one dependency
// per regex match. Offsets are absolute byte positions in the file so the
// reported locations can be rewritten in place.
func (s *RuleScanner) Scan(fc scanner.FileContext) error {
	r, err := fc.Content()
	if err != nil {
		return err
	}
	return s.matchReader(fc, r)
}

func (s *RuleScanner) matchReader(fc scanner.FileContext, r io.Reader) error {
	ctx := fc.Context()
	br := bufio.NewReaderSize(r, 64*1024)
	var offset int64
	lineNum := 0

	for {
		b, err := br.ReadBytes('\n')
		if len(b) > 0 {
			lineNum++
			if lineNum%checkEvery == 0 {
				if cerr := ctx.Err(); cerr != nil {
					return cerr
				}
			}
			for _, m := range s.re.FindAllSubmatchIndex(b, -1) {
				ns, ne := m[2*s.nameIdx], m[2*s.nameIdx+1]
				vs, ve := m[2*s.verIdx], m[2*s.verIdx+1]
				if ns < 0 || vs < 0 {
					continue
				}
				fc.Report(scanner.Dependency{
					Name:    string(b[ns:ne]),
					Version: string(b[vs:ve]),
					Type:    s.depType,
					Location: scanner.TextLocation{
						Path:    fc.Path(),
						Line:    lineNum,
						Column:  vs + 1,
						Offset:  offset + int64(vs),
						Length:  ve - vs,
						Text:    string(b[vs:ve]),
						CanEdit: s.updatable,
					},
				})
			}
			offset += int64(len(b))
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
