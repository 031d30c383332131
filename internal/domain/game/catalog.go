package game

import (
	"fmt"
	"slices"
)

// Catalog is the fixed set of channel definitions.
type Catalog struct {
	// definitions keeps display order.
	definitions []Definition
}

const (
	cddaBundle = "Cataclysm.app"
	cddaData   = "Contents/Resources"
	dcssBundle = "Dungeon Crawl Stone Soup - Tiles.app"
	dcssOnline = "https://crawl.akrasiac.org:8443/#lobby"
)

// DefaultUserDataFolders are the folders a Cataclysm bundle keeps player data in.
func DefaultUserDataFolders() []string {
	return []string{"save", "backups", "memorial", "graveyard", "templates"}
}

// DefaultCatalog returns the built-in channel definitions.
func DefaultCatalog() *Catalog {
	cddaAssets := AssetRule{
		AllOf:      []string{"osx", "graphics", "universal"},
		Extensions: []string{".dmg"},
	}

	// Darwin truncates process names to 16 bytes.
	cddaProcesses := []string{"cataclysm-tiles", "Cataclysm"}

	return &Catalog{definitions: []Definition{
		{
			Channel:         Experimental,
			Title:           "Cataclysm: DDA Experimental",
			Owner:           "CleverRaven",
			Repo:            "Cataclysm-DDA",
			Feed:            FeedList,
			Category:        "experimental",
			Assets:          cddaAssets,
			BundleName:      cddaBundle,
			DataDir:         cddaData,
			UserDataFolders: DefaultUserDataFolders(),
			ProcessNames:    cddaProcesses,
		},
		{
			Channel:         Stable,
			Title:           "Cataclysm: DDA Stable",
			Owner:           "CleverRaven",
			Repo:            "Cataclysm-DDA",
			Feed:            FeedLatest,
			Assets:          cddaAssets,
			BundleName:      cddaBundle,
			DataDir:         cddaData,
			UserDataFolders: DefaultUserDataFolders(),
			ProcessNames:    cddaProcesses,
		},
		{
			Channel: BrightNights,
			Title:   "Cataclysm: Bright Nights",
			Owner:   "cataclysmbnteam",
			Repo:    "Cataclysm-BN",
			Feed:    FeedList,
			Assets: AssetRule{
				AllOf:      []string{"osx"},
				AnyOf:      []string{"tiles", "graphics"},
				Extensions: []string{".dmg"},
			},
			BundleName:      cddaBundle,
			DataDir:         cddaData,
			UserDataFolders: DefaultUserDataFolders(),
			ProcessNames:    cddaProcesses,
		},
		{
			Channel: DCSS,
			Title:   "Dungeon Crawl Stone Soup",
			Owner:   "crawl",
			Repo:    "crawl",
			Feed:    FeedLatest,
			Assets: AssetRule{
				AnyOf:      []string{"mac", "osx", "darwin"},
				Extensions: []string{".dmg", ".zip"},
			},
			BundleName:   dcssBundle,
			ProcessNames: []string{"crawl", "Dungeon Crawl St"},
			OnlineURL:    dcssOnline,
		},
	}}
}

// NewCatalog builds a catalog from explicit definitions, mostly for tests.
func NewCatalog(definitions ...Definition) *Catalog {
	return &Catalog{definitions: slices.Clone(definitions)}
}

// Lookup returns the definition of the channel.
func (c *Catalog) Lookup(ch Channel) (*Definition, error) {
	for i := range c.definitions {
		if c.definitions[i].Channel == ch {
			return &c.definitions[i], nil
		}
	}

	return nil, fmt.Errorf("%q: %w", ch, ErrUnknownChannel)
}

// Channels returns the catalog channels in display order.
func (c *Catalog) Channels() []Channel {
	result := make([]Channel, 0, len(c.definitions))
	for i := range c.definitions {
		result = append(result, c.definitions[i].Channel)
	}

	return result
}

// WithUserDataFolders returns a copy where every channel that keeps user data
// inside its bundle preserves the given folders instead of the defaults.
func (c *Catalog) WithUserDataFolders(folders []string) *Catalog {
	result := NewCatalog(c.definitions...)
	if len(folders) == 0 {
		return result
	}

	for i := range result.definitions {
		if result.definitions[i].DataDir != "" {
			result.definitions[i].UserDataFolders = slices.Clone(folders)
		}
	}

	return result
}
