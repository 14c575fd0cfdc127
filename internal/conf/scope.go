package conf

import (
	"path"
	"path/filepath"
)

// Local file names inside a scope's work directory.
const (
	BarcodeLocalName     = "mas_new.csv"
	DescriptionLocalName = "desc.txt"
	DefaultDescEncoding  = "utf-16le"
)

// ScopeSettings configures one store location.
type ScopeSettings struct {
	ID           string              `yaml:"id"`
	Fetch        *bool               `yaml:"fetch,omitempty"`
	DBPath       string              `yaml:"dbpath"`
	StagingDir   string              `yaml:"stagingdir"`
	Planograms   PlanogramSettings   `yaml:"planograms"`
	Barcodes     BarcodeSettings     `yaml:"barcodes"`
	Descriptions DescriptionSettings `yaml:"descriptions"`
}

// PlanogramSettings locate the planogram workbooks.
type PlanogramSettings struct {
	Remote string `yaml:"remote"`
	Local  string `yaml:"local"`
}

// BarcodeSettings locate the barcode file. Latest picks the newest .csv in
// Remote, otherwise File is fetched.
type BarcodeSettings struct {
	Remote string `yaml:"remote"`
	File   string `yaml:"file,omitempty"`
	Latest *bool  `yaml:"latest,omitempty"`
	Local  string `yaml:"local"`
}

// DescriptionSettings locate the PLU description index.
type DescriptionSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Remote   string `yaml:"remote"`
	Local    string `yaml:"local"`
	Encoding string `yaml:"encoding"`
}

// FetchEnabled reports whether the scope downloads from the drop. Defaults to true.
func (s *ScopeSettings) FetchEnabled() bool {
	return s.Fetch == nil || *s.Fetch
}

// LatestBarcode reports whether the newest barcode file is selected.
// Defaults to true unless a fixed file name is set.
func (s *ScopeSettings) LatestBarcode() bool {
	if s.Barcodes.Latest != nil {
		return *s.Barcodes.Latest
	}
	return s.Barcodes.File == ""
}

// applyScopeDefaults derives unset paths from the scope id and work directory,
// following the drop's layout.
func applyScopeDefaults(settings *Settings) {
	workdir := settings.Sync.WorkDir
	for i := range settings.Scopes {
		s := &settings.Scopes[i]
		base := filepath.Join(workdir, s.ID)

		if s.Planograms.Remote == "" {
			s.Planograms.Remote = path.Join(s.ID, "plano", "evision ΠΛΑΝΟ")
		}
		if s.Planograms.Local == "" {
			s.Planograms.Local = filepath.Join(base, "planograms")
		}
		if s.Barcodes.Remote == "" {
			s.Barcodes.Remote = "/" + s.ID
		}
		if s.Barcodes.Local == "" {
			s.Barcodes.Local = filepath.Join(base, "barcodes", BarcodeLocalName)
		}
		if s.Descriptions.Remote == "" {
			s.Descriptions.Remote = path.Join("/", s.ID, "EshopItems.txt")
		}
		if s.Descriptions.Local == "" {
			s.Descriptions.Local = filepath.Join(base, "desc", DescriptionLocalName)
		}
		if s.Descriptions.Encoding == "" {
			s.Descriptions.Encoding = DefaultDescEncoding
		}
		if s.StagingDir == "" {
			s.StagingDir = filepath.Join(base, "staging")
		}
		if s.DBPath == "" {
			s.DBPath = filepath.Join("out", s.ID, "masoutisdb.sqlite")
		}
	}
}

// Scope returns the settings of the scope with id.
func (s *Settings) Scope(id string) (*ScopeSettings, bool) {
	for i := range s.Scopes {
		if s.Scopes[i].ID == id {
			return &s.Scopes[i], true
		}
	}
	return nil, false
}
