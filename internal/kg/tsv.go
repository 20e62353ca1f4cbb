package kg

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kuitang/kgportal-e2e/internal/obs"
)

// NodeColumns is the CSKG nodes TSV header.
var NodeColumns = []string{"id", "label", "aliases", "pos", "datasource", "other"}

const (
	aliasSeparator = "|"
	maxLineBytes   = 1 << 20
)

// ReadNodesTSV parses a CSKG nodes file: tab-delimited, header first, no quoting.
// Rows missing id or datasource are skipped with a warning.
func ReadNodesTSV(r io.Reader) ([]Node, error) {
	log := obs.Pkg("kg")
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read nodes header: %w", err)
		}
		return nil, fmt.Errorf("read nodes header: empty input")
	}
	columns := map[string]int{}
	for i, name := range strings.Split(strings.TrimRight(sc.Text(), "\r"), "\t") {
		columns[strings.TrimSpace(name)] = i
	}
	if _, ok := columns["id"]; !ok {
		return nil, fmt.Errorf("nodes header has no id column")
	}

	var nodes []Node
	for row := 0; sc.Scan(); row++ {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		get := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(fields) {
				return ""
			}
			return fields[i]
		}

		node := Node{
			ID:         get("id"),
			Label:      get("label"),
			Aliases:    splitAliases(get("aliases")),
			Pos:        get("pos"),
			Datasource: get("datasource"),
			Other:      get("other"),
		}
		if err := node.Validate(); err != nil {
			log.Warn("cskg_row_skipped", "row", row, "error", err.Error())
			continue
		}
		nodes = append(nodes, node)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read nodes: %w", err)
	}
	return nodes, nil
}

// WriteNodesTSV writes nodes with the CSKG header. Tabs and newlines inside
// values are replaced by spaces since the format has no quoting.
func WriteNodesTSV(w io.Writer, nodes []Node) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(NodeColumns, "\t") + "\n"); err != nil {
		return err
	}
	for _, n := range nodes {
		fields := []string{n.ID, n.Label, strings.Join(n.Aliases, aliasSeparator), n.Pos, n.Datasource, n.Other}
		for i, f := range fields {
			fields[i] = flatten(f)
		}
		if _, err := bw.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func splitAliases(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, a := range strings.Split(s, aliasSeparator) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func flatten(s string) string {
	return strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(s)
}
