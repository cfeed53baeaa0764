package dataflows

import (
	"bytes"
	"encoding/json"
	"io"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func decodeJSON(body string, v any) error {
	return json.Unmarshal([]byte(body), v)
}

// decodeGBK transcodes a GBK response body to UTF-8. Sina's quote and
// suggestion endpoints still answer in GBK.
func decodeGBK(body []byte) (string, error) {
	reader := transform.NewReader(bytes.NewReader(body), simplifiedchinese.GBK.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
