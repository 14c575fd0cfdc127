package pipeline

import (
	"fmt"
	"strings"

	"github.com/masvision/shelfsync/internal/errors"
)

// PlanogramSource locates the planogram workbooks of a scope.
type PlanogramSource struct {
	RemoteDir string
	LocalDir  string
}

// BarcodeSource locates the barcode file. With Latest set the newest .csv of
// RemoteDir is fetched, otherwise RemoteFile. Either way it lands in LocalFile.
type BarcodeSource struct {
	RemoteDir  string
	RemoteFile string
	Latest     bool
	LocalFile  string
}

// DescriptionSource locates the optional PLU description index.
type DescriptionSource struct {
	Enabled    bool
	RemotePath string
	LocalPath  string
	Encoding   string
}

// Scope is one store location synced into its own catalog database.
type Scope struct {
	ID           string
	Fetch        bool
	Planograms   PlanogramSource
	Barcodes     BarcodeSource
	Descriptions DescriptionSource
	StagingDir   string
	DBPath       string
}

// Validate reports every missing setting at once.
func (s *Scope) Validate() error {
	var problems []string
	if strings.TrimSpace(s.ID) == "" {
		problems = append(problems, "id is empty")
	}
	if s.DBPath == "" {
		problems = append(problems, "dbpath is empty")
	}
	if s.Planograms.LocalDir == "" {
		problems = append(problems, "planograms local dir is empty")
	}
	if s.Barcodes.LocalFile == "" {
		problems = append(problems, "barcodes local file is empty")
	}
	if s.Fetch && !s.Barcodes.Latest && s.Barcodes.RemoteFile == "" {
		problems = append(problems, "barcodes remote file is empty and latest selection is off")
	}
	if s.Descriptions.Enabled && s.Descriptions.LocalPath == "" {
		problems = append(problems, "descriptions local path is empty")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.Newf("scope %q: %s", s.ID, strings.Join(problems, "; ")).
		Component("pipeline").
		Category(errors.CategoryValidation).
		Build()
}

func (s *Scope) String() string {
	return fmt.Sprintf("scope %s (db %s)", s.ID, s.DBPath)
}
