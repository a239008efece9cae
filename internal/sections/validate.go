package sections

import (
	"fmt"
	"text/template"
	"text/template/parse"

	"market-report/internal/types"
)

// SectionCount is the fixed number of report sections.
const SectionCount = 8

// SpecError reports a defect in the section table found at startup.
type SpecError struct {
	ID     types.SectionID
	Reason string
}

func (e *SpecError) Error() string {
	if e.ID == "" {
		return "invalid section table: " + e.Reason
	}
	return fmt.Sprintf("invalid section %s: %s", e.ID, e.Reason)
}

// compiledSpec is a validated spec with its parsed templates.
type compiledSpec struct {
	SectionSpec
	prompt *template.Template
	data   *template.Template
	deps   map[types.SectionID]bool
}

// parseFuncs lets templates parse before any section has been generated.
var parseFuncs = template.FuncMap{
	"section": func(string) (string, error) { return "", nil },
}

// ValidateSpecs checks the table: exactly eight sections with ordinals 1..8 in
// order, unique IDs, dependencies only on earlier sections, and every
// {{section "id"}} reference declared in DependsOn.
func ValidateSpecs(specs []SectionSpec) error {
	_, err := compile(specs)
	return err
}

func compile(specs []SectionSpec) ([]compiledSpec, error) {
	if len(specs) != SectionCount {
		return nil, &SpecError{Reason: fmt.Sprintf("want %d sections, got %d", SectionCount, len(specs))}
	}

	ordinals := make(map[types.SectionID]int, len(specs))
	out := make([]compiledSpec, 0, len(specs))
	for i, s := range specs {
		switch {
		case s.ID == "":
			return nil, &SpecError{Reason: fmt.Sprintf("section at position %d has no id", i+1)}
		case s.Title == "":
			return nil, &SpecError{ID: s.ID, Reason: "missing title"}
		case s.Ordinal != i+1:
			return nil, &SpecError{ID: s.ID, Reason: fmt.Sprintf("ordinal %d at position %d", s.Ordinal, i+1)}
		}
		if _, dup := ordinals[s.ID]; dup {
			return nil, &SpecError{ID: s.ID, Reason: "duplicate id"}
		}

		deps := make(map[types.SectionID]bool, len(s.DependsOn))
		for _, dep := range s.DependsOn {
			ord, earlier := ordinals[dep]
			if !earlier || ord >= s.Ordinal {
				return nil, &SpecError{ID: s.ID, Reason: fmt.Sprintf("depends on %s, which is not an earlier section", dep)}
			}
			deps[dep] = true
		}
		ordinals[s.ID] = s.Ordinal

		cs := compiledSpec{SectionSpec: s, deps: deps}
		var err error
		if cs.prompt, err = parseChecked(s, "prompt", s.Template, deps); err != nil {
			return nil, err
		}
		if cs.data, err = parseChecked(s, "data", s.Data, deps); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, nil
}

func parseChecked(s SectionSpec, name, src string, deps map[types.SectionID]bool) (*template.Template, error) {
	t, err := template.New(string(s.ID) + "." + name).Funcs(parseFuncs).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, &SpecError{ID: s.ID, Reason: fmt.Sprintf("%s template: %v", name, err)}
	}
	for _, tt := range t.Templates() {
		if tt.Tree == nil {
			continue
		}
		for _, ref := range sectionRefs(tt.Tree.Root) {
			if ref == "" {
				return nil, &SpecError{ID: s.ID, Reason: "section must be called with a literal id"}
			}
			if !deps[types.SectionID(ref)] {
				return nil, &SpecError{ID: s.ID, Reason: fmt.Sprintf("references section %q without declaring it", ref)}
			}
		}
	}
	return t, nil
}

// sectionRefs collects the argument of every `section` call under n. A call whose
// argument is not a string literal yields "".
func sectionRefs(n parse.Node) []string {
	var refs []string
	var walk func(parse.Node)
	walkPipe := func(p *parse.PipeNode) {
		if p == nil {
			return
		}
		for _, cmd := range p.Cmds {
			walk(cmd)
		}
	}
	walk = func(n parse.Node) {
		switch n := n.(type) {
		case nil:
		case *parse.ListNode:
			if n == nil {
				return
			}
			for _, c := range n.Nodes {
				walk(c)
			}
		case *parse.ActionNode:
			walkPipe(n.Pipe)
		case *parse.IfNode:
			walkPipe(n.Pipe)
			walk(n.List)
			walk(n.ElseList)
		case *parse.RangeNode:
			walkPipe(n.Pipe)
			walk(n.List)
			walk(n.ElseList)
		case *parse.WithNode:
			walkPipe(n.Pipe)
			walk(n.List)
			walk(n.ElseList)
		case *parse.TemplateNode:
			walkPipe(n.Pipe)
		case *parse.PipeNode:
			walkPipe(n)
		case *parse.CommandNode:
			for i, arg := range n.Args {
				if id, ok := arg.(*parse.IdentifierNode); ok && id.Ident == "section" {
					ref := ""
					if i+1 < len(n.Args) {
						if s, ok := n.Args[i+1].(*parse.StringNode); ok {
							ref = s.Text
						}
					}
					refs = append(refs, ref)
					continue
				}
				walk(arg)
			}
		}
	}
	walk(n)
	return refs
}
