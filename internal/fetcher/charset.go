package fetcher

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// DecodeCharset wraps r so it yields UTF-8. charset is any WHATWG encoding
// label ("latin1", "windows-1252", "utf-16le", ...); empty or "utf-8"
// returns r unchanged.
func DecodeCharset(r io.Reader, charset string) (io.Reader, error) {
	charset = strings.TrimSpace(charset)
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "charset: unsupported encoding %q", charset)
	}
	return enc.NewDecoder().Reader(r), nil
}
