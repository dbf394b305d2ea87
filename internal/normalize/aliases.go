package normalize

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// AliasFile is the on-disk vendor alias format:
//
//	aliases:
//	  Acme Builders: [acme, "ACME BUILDERS LLC", acme_bid.pdf]
type AliasFile struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// AliasTable inverts canonical → alternatives into a lower-cased lookup.
// Canonical names map to themselves. A name claimed by two canonical vendors
// is an error.
func AliasTable(groups map[string][]string) (map[string]string, error) {
	table := make(map[string]string)
	add := func(name, canonical string) error {
		key := strings.ToLower(collapseSpace(name))
		if key == "" {
			return nil
		}
		if prev, ok := table[key]; ok && prev != canonical {
			return eris.Errorf("aliases: %q maps to both %q and %q", name, prev, canonical)
		}
		table[key] = canonical
		return nil
	}
	for canonical, alts := range groups {
		canonical = collapseSpace(canonical)
		if canonical == "" {
			continue
		}
		if err := add(canonical, canonical); err != nil {
			return nil, err
		}
		for _, alt := range alts {
			if err := add(alt, canonical); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}

// LoadAliases reads a YAML alias file and returns its lookup table.
func LoadAliases(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "aliases: read %s", path)
	}
	var f AliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "aliases: parse %s", path)
	}
	return AliasTable(f.Aliases)
}
