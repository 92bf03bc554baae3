package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/entry-report/internal/model"
)

type templateFile struct {
	Templates []model.SectionTemplate `yaml:"templates"`
}

// LoadTemplatesFromFile reads section templates from a YAML file of the form
// `templates: [{section_name, title, prompt_template, visibility_tier, sort_order}]`.
// Unlike Prepare, any invalid entry fails the whole load.
func LoadTemplatesFromFile(path string) ([]model.SectionTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read templates fixture")
	}

	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal templates fixture")
	}
	if len(f.Templates) == 0 {
		return nil, eris.Errorf("registry: no templates in %s", path)
	}

	out := make([]model.SectionTemplate, 0, len(f.Templates))
	seen := make(map[string]bool, len(f.Templates))
	for i, raw := range f.Templates {
		t, err := model.NewSectionTemplate(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: template #%d", i+1)
		}
		if seen[t.Name] {
			return nil, eris.Errorf("registry: duplicate section %q", t.Name)
		}
		seen[t.Name] = true
		out = append(out, *t)
	}
	model.SortTemplates(out)
	return out, nil
}
