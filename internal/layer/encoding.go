package layer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// cpgAliases maps code page spellings found in ESRI .cpg files onto WHATWG
// encoding labels understood by htmlindex.
var cpgAliases = map[string]string{
	"1252":      "windows-1252",
	"ansi 1252": "windows-1252",
	"cp1252":    "windows-1252",
	"88591":     "iso-8859-1",
	"8859_1":    "iso-8859-1",
	"1250":      "windows-1250",
	"1251":      "windows-1251",
	"65001":     "utf-8",
	"utf8":      "utf-8",
}

// dbfDecoder returns the decoder for the DBF text of shpPath. The override
// label wins over the .cpg sidecar; with neither, UTF-8 is assumed.
func dbfDecoder(shpPath, override string) (*encoding.Decoder, string, error) {
	label := strings.TrimSpace(override)
	if label == "" {
		label = readCPG(shpPath)
	}
	if label == "" {
		label = "utf-8"
	}

	key := strings.ToLower(label)
	if alias, ok := cpgAliases[key]; ok {
		key = alias
	}

	enc, err := htmlindex.Get(key)
	if err != nil {
		return nil, "", eris.Wrapf(err, "layer: unsupported dbf encoding %q", label)
	}
	name, _ := htmlindex.Name(enc)
	return enc.NewDecoder(), name, nil
}

// readCPG returns the trimmed contents of the .cpg sidecar, or "".
func readCPG(shpPath string) string {
	data, err := os.ReadFile(sidecar(shpPath, ".cpg"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// sidecar returns the path of a companion file such as .prj or .cpg,
// preferring an existing upper-case variant when the lower-case one is absent.
func sidecar(shpPath, ext string) string {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	lower := base + strings.ToLower(ext)
	if _, err := os.Stat(lower); err == nil {
		return lower
	}
	upper := base + strings.ToUpper(ext)
	if _, err := os.Stat(upper); err == nil {
		return upper
	}
	return lower
}
