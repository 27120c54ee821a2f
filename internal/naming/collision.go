package naming

import (
	"log/slog"
	"strconv"
)

// nameSet maps each claimed name to the source that claimed it.
type nameSet map[string]string

// claim returns name if it is free, otherwise the first free name2, name3,
// and so on.
func (s nameSet) claim(name, source string, logger *slog.Logger) string {
	existing, taken := s[name]
	if !taken {
		s[name] = source
		return name
	}
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)
		if _, taken := s[candidate]; taken {
			continue
		}
		logger.Warn("name already in use, numbering the new one",
			slog.String("name", name),
			slog.String("renamed_to", candidate),
			slog.String("existing_source", existing),
			slog.String("new_source", source),
		)
		s[candidate] = source
		return candidate
	}
}

// collisions tracks type names across an inference run and field names
// within each type.
type collisions struct {
	types  nameSet
	fields map[string]nameSet
	logger *slog.Logger
}

func newCollisions(logger *slog.Logger) *collisions {
	return &collisions{
		types:  nameSet{},
		fields: map[string]nameSet{},
		logger: logger,
	}
}

func (c *collisions) typeName(name, table string) string {
	return c.types.claim(name, "table:"+table, c.logger)
}

func (c *collisions) fieldName(typeName, name, source string) string {
	set, ok := c.fields[typeName]
	if !ok {
		set = nameSet{}
		c.fields[typeName] = set
	}
	return set.claim(name, source, c.logger)
}

func (c *collisions) hasField(typeName, name string) bool {
	_, ok := c.fields[typeName][name]
	return ok
}
