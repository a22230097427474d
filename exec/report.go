package exec

import (
	"bytes"
	"strings"
)

// lineWriter feeds multi-line output (stack dumps, mostly) to a Logf
// one prefixed line at a time.
type lineWriter struct {
	Prefix string
	Logf   func(string, ...any)

	lineBuf strings.Builder
}

func (lw *lineWriter) Flush() error {
	if lw.lineBuf.Len() == 0 {
		return nil
	}
	lw.Logf("%s%s", lw.Prefix, lw.lineBuf.String())
	lw.lineBuf.Reset()
	return nil
}

var newline = []byte{'\n'}

func (lw *lineWriter) Write(p []byte) (n int, err error) {
	p0 := p
	for {
		before, after, hasNewline := bytes.Cut(p, newline)
		lw.lineBuf.Write(before)
		if !hasNewline {
			return len(p0), nil
		}
		if err := lw.Flush(); err != nil {
			return 0, err
		}
		p = after
	}
}
