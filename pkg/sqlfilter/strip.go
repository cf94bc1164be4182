// Package sqlfilter rewrites mysqldump output for servers that reject
// version-gated compatibility comments.
package sqlfilter

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// DefaultThreshold is MySQL 8.0.0 in comment version notation.
const DefaultThreshold = 80000

const versionedOpen = "/*!"

// Stripper unwraps /*!NNNNN ... */ comments whose version is below Threshold
// and keeps newer ones verbatim. Everything else passes through unchanged.
type Stripper struct {
	Threshold int
	// Progress, if set, is called with the number of input bytes consumed so far.
	Progress func(consumed int64)
}

// New returns a Stripper with the default threshold.
func New() *Stripper {
	return &Stripper{Threshold: DefaultThreshold}
}

// Copy filters src into dst a line at a time, holding at most one versioned
// comment in memory. It returns the number of input bytes consumed.
func (s *Stripper) Copy(dst io.Writer, src io.Reader) (int64, error) {
	var (
		in       = bufio.NewReaderSize(src, 64*1024)
		out      = bufio.NewWriterSize(dst, 64*1024)
		consumed int64
	)
	threshold := s.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	readLine := func() (string, error) {
		line, err := in.ReadString('\n')
		consumed += int64(len(line))
		if line != "" && s.Progress != nil {
			s.Progress(consumed)
		}
		return line, err
	}

	for {
		line, err := readLine()
		if line == "" && err != nil {
			if err == io.EOF {
				return consumed, out.Flush()
			}
			return consumed, err
		}
		eof := err == io.EOF
		if err != nil && !eof {
			return consumed, err
		}

		for {
			idx := strings.Index(line, versionedOpen)
			if idx < 0 {
				if _, werr := out.WriteString(line); werr != nil {
					return consumed, werr
				}
				break
			}
			digitsEnd := idx + len(versionedOpen)
			for digitsEnd < len(line) && isDigit(line[digitsEnd]) {
				digitsEnd++
			}
			if digitsEnd == idx+len(versionedOpen) {
				// not versioned, an ordinary /*! sequence
				if _, werr := out.WriteString(line[:digitsEnd]); werr != nil {
					return consumed, werr
				}
				line = line[digitsEnd:]
				continue
			}

			comment := line[idx:]
			end := closingIndex(comment, digitsEnd-idx)
			for end < 0 && !eof {
				next, rerr := readLine()
				if rerr != nil && rerr != io.EOF {
					return consumed, rerr
				}
				eof = rerr == io.EOF
				comment += next
				end = closingIndex(comment, digitsEnd-idx)
			}
			if end < 0 {
				// unterminated at end of input
				if _, werr := out.WriteString(line); werr != nil {
					return consumed, werr
				}
				if _, werr := out.WriteString(comment[len(line)-idx:]); werr != nil {
					return consumed, werr
				}
				return consumed, out.Flush()
			}

			if _, werr := out.WriteString(line[:idx]); werr != nil {
				return consumed, werr
			}
			version, _ := strconv.Atoi(comment[len(versionedOpen) : digitsEnd-idx])
			kept := comment[digitsEnd-idx : end]
			if version >= threshold {
				kept = comment[:end+2]
			}
			if _, werr := out.WriteString(kept); werr != nil {
				return consumed, werr
			}
			line = comment[end+2:]
		}
		if eof {
			return consumed, out.Flush()
		}
	}
}

// closingIndex finds the */ that closes the versioned comment starting at
// comment[0], skipping nested /* */ pairs. It returns -1 if there is none yet.
func closingIndex(comment string, from int) int {
	depth := 0
	for k := from; k < len(comment)-1; k++ {
		switch comment[k : k+2] {
		case "/*":
			depth++
			k++
		case "*/":
			if depth == 0 {
				return k
			}
			depth--
			k++
		}
	}
	return -1
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
