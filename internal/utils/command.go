package utils

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

/**
 * Expand templates in a command line
 * @param {string} command - Executable, may itself be a template
 * @param {[]string} args - Arguments, e.g. "--port={{.Port}}"
 * @param {interface{}} data - Template data, usually the resource name, port and env
 * @returns {string} Expanded command
 * @returns {[]string} Expanded arguments, trimmed
 * @returns {error} Parse error, or a reference to a field data does not have
 */
func GetCommandLine(command string, args []string, data interface{}) (string, []string, error) {
	cmd, err := expand("command", command, data)
	if err != nil {
		return "", nil, err
	}
	expanded := make([]string, 0, len(args))
	for i, arg := range args {
		s, err := expand(fmt.Sprintf("arg %d", i), arg, data)
		if err != nil {
			return "", nil, err
		}
		expanded = append(expanded, strings.TrimSpace(s))
	}
	return cmd, expanded, nil
}

func expand(what, text string, data interface{}) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New(what).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template %q: %w", what, text, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("expand %s template %q: %w", what, text, err)
	}
	return buf.String(), nil
}
