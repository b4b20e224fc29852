package xmlutil

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// Encode serializes a typed document struct into an XML string with the
// standard header, the way exports are handed to downstream consumers.
func Encode(doc any) (string, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(body), nil
}

// Decode unmarshals XML bytes into a typed document struct. Each entity
// declares its own document shape, so a lone record and a list of records
// both land in the same slice field.
func Decode(data []byte, doc any) error {
	return xml.Unmarshal(data, doc)
}

// RootName returns the local name of the document's root element. Used to
// reject a whole import batch before any per-record work starts.
func RootName(data []byte) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", fmt.Errorf("no root element found in XML")
		}
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// WellFormed scans every token so truncated or mismatched documents are
// caught even past the root element.
func WellFormed(data []byte) error {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ParseDate accepts the two date layouts seen in import files: full ISO-8601
// timestamps and bare dates.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// FormatDate renders a temporal field for export.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
