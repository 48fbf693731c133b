package csvio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestDecodeUTF8WithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("court_name\nСуд")...)

	text, enc, err := Decode("f.csv", data)
	require.NoError(t, err)
	assert.Equal(t, "utf-8-sig", enc)
	assert.Equal(t, "court_name\nСуд", text)
}

func TestDecodeWindows1251(t *testing.T) {
	data, err := charmap.Windows1251.NewEncoder().Bytes([]byte("court_name;case_number\nКиївський суд;1/2"))
	require.NoError(t, err)

	text, enc, err := Decode("f.csv", data)
	require.NoError(t, err)
	assert.Equal(t, "windows-1251", enc)
	assert.Contains(t, text, "Київський суд")
}

func TestEncodingErrorMessage(t *testing.T) {
	err := &EncodingError{Path: "x.csv", Tried: []string{"utf-8-sig", "windows-1251"}}
	assert.Equal(t, "cannot decode x.csv (tried utf-8-sig, windows-1251)", err.Error())
}

func TestDecodeRejectsUndecodableInput(t *testing.T) {
	// 0x98 is neither valid UTF-8 nor assigned in Windows-1251.
	data := []byte("court_name;case_number\n\xc4\xf3\x98;1\n")

	text, enc, err := Decode("bad.csv", data)
	require.Error(t, err)
	assert.Empty(t, text)
	assert.Empty(t, enc)

	var encErr *EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, "bad.csv", encErr.Path)
	assert.Equal(t, []string{"utf-8-sig", "windows-1251"}, encErr.Tried)
}

func TestOpenUndecodableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("court_name\n\x98\n"), 0o644))

	r, err := Open(path)
	assert.Nil(t, r)
	var encErr *EncodingError
	assert.ErrorAs(t, err, &encErr)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', SniffDelimiter("a;b;c\n1,2;3"))
	assert.Equal(t, '\t', SniffDelimiter("a\tb\tc"))
	assert.Equal(t, ',', SniffDelimiter("single"))
	assert.Equal(t, ',', SniffDelimiter("a,b\r\n1;2;3;4"))
}

func TestReaderKeysRecordsByHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	content := " court_name ;case_number;judges\n" +
		"Суд;1/24;\"A: B; C: D\"\n" +
		"Суд;2/24\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"court_name", "case_number", "judges"}, r.Header)
	assert.Equal(t, 1, r.Column("CASE_NUMBER"))
	assert.Equal(t, -1, r.Column("missing"))

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "A: B; C: D", first["judges"])

	second, err := r.Next()
	require.NoError(t, err)
	_, present := second["judges"]
	assert.False(t, present)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewReaderEmptyInput(t *testing.T) {
	_, err := NewReader("empty.csv", nil)
	assert.Error(t, err)
}
