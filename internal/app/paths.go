package app

import "path/filepath"

// Paths holds all resolved paths of a planner workspace
type Paths struct {
	Root        string // workspace root ($PLANNER_ROOT)
	Planner     string // <root>/planner
	Latest      string // <root>/planner/latest
	Var         string // <root>/planner/var
	Reflections string // <root>/reflections

	// Key files
	Setting       string // planner/setting.json
	State         string // planner/state.json
	Draft         string // planner/latest/checkin_draft.json
	Plan          string // planner/latest/plan.md
	PlanPrev      string // planner/latest/plan_prev.md
	Focus         string // planner/latest/focus.json
	ReflectionLog string // reflections/reflections.md
	Journal       string // planner/var/finalize.ndjson
	HistoryDB     string // planner/var/history.db
	TxnDir        string // planner/var/txn
	FinalizeLock  string // planner/var/finalize
}

// ResolvePaths builds the workspace layout under root
func ResolvePaths(root string) Paths {
	p := Paths{
		Root:        root,
		Planner:     filepath.Join(root, "planner"),
		Reflections: filepath.Join(root, "reflections"),
	}
	p.Latest = filepath.Join(p.Planner, "latest")
	p.Var = filepath.Join(p.Planner, "var")

	p.Setting = filepath.Join(p.Planner, "setting.json")
	p.State = filepath.Join(p.Planner, "state.json")
	p.Draft = filepath.Join(p.Latest, "checkin_draft.json")
	p.Plan = filepath.Join(p.Latest, "plan.md")
	p.PlanPrev = filepath.Join(p.Latest, "plan_prev.md")
	p.Focus = filepath.Join(p.Latest, "focus.json")
	p.ReflectionLog = filepath.Join(p.Reflections, "reflections.md")
	p.Journal = filepath.Join(p.Var, "finalize.ndjson")
	p.HistoryDB = filepath.Join(p.Var, "history.db")
	p.TxnDir = filepath.Join(p.Var, "txn")
	p.FinalizeLock = filepath.Join(p.Var, "finalize")
	return p
}

// Rel returns path relative to the workspace root, for staging inside a
// transaction. Paths outside the root are returned unchanged.
func (p Paths) Rel(path string) string {
	rel, err := filepath.Rel(p.Root, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
		return path
	}
	return rel
}
