package prismlate

// FieldChange records the value of a field before and after a write.
type FieldChange struct {
	Index    int // 1-based field number within the run
	FieldID  string
	Kind     FieldKind
	Before   string
	After    string
	PathOnly bool // Only localized-path segments changed
}

// ChangeSet collects the changes made during a run.
type ChangeSet struct {
	// Translated contains fields whose value was replaced by a translation.
	Translated []FieldChange

	// Rewritten contains fields where only localized paths were rewritten.
	Rewritten []FieldChange

	// Failed contains the 1-based indexes of fields whose translation failed.
	Failed []int
}

// ChangeStats contains summary statistics for a change set.
type ChangeStats struct {
	Translated int
	Rewritten  int
	Failed     int
}

// Stats returns summary statistics for the change set.
func (c *ChangeSet) Stats() ChangeStats {
	if c == nil {
		return ChangeStats{}
	}
	return ChangeStats{
		Translated: len(c.Translated),
		Rewritten:  len(c.Rewritten),
		Failed:     len(c.Failed),
	}
}

// HasChanges returns true if any field value changed.
func (c *ChangeSet) HasChanges() bool {
	return c != nil && (len(c.Translated) > 0 || len(c.Rewritten) > 0)
}

// All returns translated and rewritten changes ordered by field index.
func (c *ChangeSet) All() []FieldChange {
	if c == nil {
		return nil
	}
	out := make([]FieldChange, 0, len(c.Translated)+len(c.Rewritten))
	i, j := 0, 0
	for i < len(c.Translated) || j < len(c.Rewritten) {
		switch {
		case j >= len(c.Rewritten):
			out = append(out, c.Translated[i])
			i++
		case i >= len(c.Translated):
			out = append(out, c.Rewritten[j])
			j++
		case c.Translated[i].Index <= c.Rewritten[j].Index:
			out = append(out, c.Translated[i])
			i++
		default:
			out = append(out, c.Rewritten[j])
			j++
		}
	}
	return out
}

func (c *ChangeSet) record(ch FieldChange) {
	if ch.PathOnly {
		c.Rewritten = append(c.Rewritten, ch)
		return
	}
	c.Translated = append(c.Translated, ch)
}
