package xmlutil

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type IssueLevel string

const (
	LevelWarning IssueLevel = "warning"
	LevelError   IssueLevel = "error"
	LevelFatal   IssueLevel = "fatal"
)

type Issue struct {
	Level   IssueLevel `json:"level"`
	Message string     `json:"message"`
}

type Result struct {
	Valid   bool    `json:"valid"`
	Errors  []Issue `json:"errors"`
	Message string  `json:"message"`
}

// Validate runs the shallow schema check used as a compatibility gate on
// exports: the document must be well-formed and its root element must match
// the root declared by <schemaName>.xsd. A missing schema file degrades to a
// warning so environments without the schema set still export. This is not a
// full structural XSD validation.
func Validate(xmlText, schemaName, schemaDir string) Result {
	var issues []Issue

	if err := WellFormed([]byte(xmlText)); err != nil {
		issues = append(issues, Issue{Level: LevelError, Message: "XML parsing error: " + err.Error()})
	}

	root, err := RootName([]byte(xmlText))
	if err != nil {
		issues = append(issues, Issue{Level: LevelError, Message: err.Error()})
	}

	schemaPath := filepath.Join(schemaDir, schemaName+".xsd")
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		if os.IsNotExist(err) {
			issues = append(issues, Issue{Level: LevelWarning, Message: "XSD schema not found: " + schemaPath})
			return finish(issues, "XML is well-formed")
		}
		issues = append(issues, Issue{Level: LevelFatal, Message: "Could not read schema: " + err.Error()})
		return finish(issues, "")
	}

	if expected := schemaRootElement(schemaBytes); expected != "" && root != "" && expected != root {
		issues = append(issues, Issue{
			Level:   LevelError,
			Message: fmt.Sprintf("Root element mismatch. Expected: %s, Got: %s", expected, root),
		})
	}

	return finish(issues, "XML validation successful")
}

// schemaRootElement pulls the name attribute of the first xs:element
// declaration, which by convention is the document root.
func schemaRootElement(schema []byte) string {
	dec := xml.NewDecoder(strings.NewReader(string(schema)))
	for {
		tok, err := dec.Token()
		if err == io.EOF || err != nil {
			return ""
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "element" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "name" {
				return attr.Value
			}
		}
	}
}

func finish(issues []Issue, okMessage string) Result {
	var failing []string
	for _, issue := range issues {
		if issue.Level == LevelError || issue.Level == LevelFatal {
			failing = append(failing, issue.Message)
		}
	}

	if issues == nil {
		issues = []Issue{}
	}

	if len(failing) > 0 {
		return Result{Valid: false, Errors: issues, Message: strings.Join(failing, "; ")}
	}

	message := okMessage
	if len(issues) > 0 {
		parts := make([]string, 0, len(issues))
		for _, issue := range issues {
			parts = append(parts, fmt.Sprintf("[%s] %s", issue.Level, issue.Message))
		}
		message = strings.Join(parts, "; ")
	}
	return Result{Valid: true, Errors: issues, Message: message}
}
