// Package catalog maps class tags to display glyphs and holds the canonical
// roster template. Both are configuration, loaded from yaml.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sokdak/raid-bot/pkg/model"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

type Class struct {
	Tag   string `yaml:"tag"`
	Name  string `yaml:"name"`
	Glyph string `yaml:"glyph"`
}

type SlotTemplate struct {
	Role    string   `yaml:"role"`
	Classes []string `yaml:"classes"`
}

type file struct {
	Classes  []Class        `yaml:"classes"`
	Template []SlotTemplate `yaml:"template"`
}

type Catalog struct {
	classes  []Class
	byTag    map[string]Class
	byName   map[string]string
	template []SlotTemplate
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path yields the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read class catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse class catalog: %w", err)
	}
	if len(f.Classes) == 0 {
		return nil, fmt.Errorf("class catalog has no classes")
	}

	c := &Catalog{
		classes:  f.Classes,
		byTag:    make(map[string]Class, len(f.Classes)),
		byName:   make(map[string]string, len(f.Classes)*2),
		template: f.Template,
	}
	for _, cl := range f.Classes {
		if cl.Tag == "" {
			return nil, fmt.Errorf("class without tag")
		}
		if _, dup := c.byTag[cl.Tag]; dup {
			return nil, fmt.Errorf("duplicate class tag %q", cl.Tag)
		}
		c.byTag[cl.Tag] = cl
		c.byName[NormalizeName(cl.Tag)] = cl.Tag
		if cl.Name != "" {
			c.byName[NormalizeName(cl.Name)] = cl.Tag
		}
	}
	for i, st := range f.Template {
		if len(st.Classes) == 0 {
			return nil, fmt.Errorf("template slot %d allows no class", i)
		}
		for _, tag := range st.Classes {
			if _, ok := c.byTag[tag]; !ok {
				return nil, fmt.Errorf("template slot %d references unknown class %q", i, tag)
			}
		}
	}
	return c, nil
}

func (c *Catalog) Has(tag string) bool {
	_, ok := c.byTag[tag]
	return ok
}

func (c *Catalog) Class(tag string) (Class, bool) {
	cl, ok := c.byTag[tag]
	return cl, ok
}

// Glyph returns the display glyph of a tag, falling back to the tag itself.
func (c *Catalog) Glyph(tag string) string {
	if cl, ok := c.byTag[tag]; ok && cl.Glyph != "" {
		return cl.Glyph
	}
	return tag
}

// Glyphs concatenates the glyphs of a tag set in set order.
func (c *Catalog) Glyphs(tags model.TagSet) string {
	var sb strings.Builder
	for _, t := range tags {
		sb.WriteString(c.Glyph(t))
	}
	return sb.String()
}

func (c *Catalog) Classes() []Class {
	return append([]Class(nil), c.classes...)
}

// Tags returns all known tags, sorted.
func (c *Catalog) Tags() []string {
	tags := make([]string, 0, len(c.byTag))
	for t := range c.byTag {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Unknown returns the tags that are not part of the catalog.
func (c *Catalog) Unknown(tags []string) []string {
	var unknown []string
	for _, t := range tags {
		if !c.Has(t) {
			unknown = append(unknown, t)
		}
	}
	return unknown
}

// TagForName resolves a chat role name to a class tag.
func (c *Catalog) TagForName(name string) (string, bool) {
	tag, ok := c.byName[NormalizeName(name)]
	return tag, ok
}

func (c *Catalog) TemplateSize() int {
	return len(c.template)
}

// DefaultClasses returns the allowed classes of template slot i.
func (c *Catalog) DefaultClasses(i int) (model.TagSet, bool) {
	if i < 0 || i >= len(c.template) {
		return nil, false
	}
	return model.NewTagSet(c.template[i].Classes...), true
}

func (c *Catalog) SlotRole(i int) string {
	if i < 0 || i >= len(c.template) {
		return ""
	}
	return c.template[i].Role
}
