// Package intake builds the business registration intake pipeline:
// uploaded files are organized by category, the license scan is sent to an
// extraction tool, an application record is generated and a summary is
// stored in the memory store for later lookup.
//
// The pipeline runs on the generic *graph.State. Every key it writes lives
// under the "intake/" namespace. Recoverable problems are recorded with
// AddError and route the run to the report node instead of failing it.
package intake

import (
	"time"

	"github.com/agentlib/workgraph/graph"
	"github.com/agentlib/workgraph/graph/store"
	"github.com/agentlib/workgraph/graph/tool"
)

// Namespace prefixes every Data key the pipeline touches.
const Namespace = "intake"

// Scoped Data keys.
const (
	KeyFiles       = "files"
	KeyOrganized   = "organized_files"
	KeyLicenseInfo = "license_info"
	KeyApplication = "application"
	KeyMemoryID    = "memory_id"
	KeyReport      = "report"
)

// Node names.
const (
	NodeOrganize = "organize"
	NodeExtract  = "extract"
	NodeGenerate = "generate"
	NodeMemory   = "memory"
	NodeReport   = "report"
)

// Category groups uploaded files whose name contains one of Keywords.
type Category struct {
	Name     string
	Keywords []string
}

// Category names used by the default rules.
const (
	CategoryLicense = "license"
	CategoryIDCard  = "id_card"
	CategoryPhoto   = "photo"
	CategoryOther   = "other"
)

// DefaultCategories matches English and Chinese file names.
var DefaultCategories = []Category{
	{Name: CategoryLicense, Keywords: []string{"license", "营业执照"}},
	{Name: CategoryIDCard, Keywords: []string{"id_card", "id-card", "idcard", "身份证"}},
	{Name: CategoryPhoto, Keywords: []string{"photo", "照片"}},
}

// DefaultFields maps license fields to gjson paths in the extraction output.
var DefaultFields = map[string]string{
	"name":           "name",
	"shop_name":      "shop_name",
	"address":        "address",
	"business_scope": "business_scope",
}

// DefaultTags are attached to every stored record.
var DefaultTags = []string{"business-registration", "application", "market-supervision"}

// Config configures Build.
type Config struct {
	// Extractor reads license fields from a scan. It receives "file" and
	// "category" and answers with either a JSON "body" string, as
	// tool.HTTPTool does, or the fields themselves.
	Extractor tool.Tool

	// Store receives the memory record. When nil the memory node only
	// records a warning.
	Store store.Store

	// Categories default to DefaultCategories.
	Categories []Category

	// Fields default to DefaultFields.
	Fields map[string]string

	// Tags default to DefaultTags.
	Tags []string

	// Now defaults to time.Now.
	Now func() time.Time

	// Options are passed to Compile.
	Options []graph.Option
}

func (c *Config) defaults() {
	if len(c.Categories) == 0 {
		c.Categories = DefaultCategories
	}
	if len(c.Fields) == 0 {
		c.Fields = DefaultFields
	}
	if len(c.Tags) == 0 {
		c.Tags = DefaultTags
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// NewState seeds a state with the uploaded file names.
func NewState(files []string) *graph.State {
	s := graph.NewState(nil)
	s.Scope(Namespace).Set(KeyFiles, append([]string(nil), files...))
	return s
}

// Build assembles and compiles the pipeline:
//
//	organize -> extract -> generate -> memory -> END
//
// Each of the first three diverts to report once an error is recorded.
func Build(cfg Config) (*graph.Workflow[*graph.State], error) {
	cfg.defaults()
	if cfg.Extractor == nil {
		return nil, errNoExtractor
	}

	g := graph.New[*graph.State]("intake")

	nodes := []struct {
		name string
		node graph.Node[*graph.State]
	}{
		{NodeOrganize, describe("sort uploads by category", organize(cfg.Categories))},
		{NodeExtract, describe("read license fields via "+cfg.Extractor.Name(), extract(cfg.Extractor, cfg.Fields))},
		{NodeGenerate, describe("fill the application record", generate(cfg.Now))},
		{NodeMemory, describe("store a searchable summary", remember(cfg.Store, cfg.Tags))},
		{NodeReport, describe("summarize recorded errors", report)},
	}
	for _, n := range nodes {
		if err := g.AddNode(n.name, n.node); err != nil {
			return nil, err
		}
	}

	if err := g.SetEntryPoint(NodeOrganize); err != nil {
		return nil, err
	}
	for _, pair := range [][2]string{
		{NodeOrganize, NodeExtract},
		{NodeExtract, NodeGenerate},
		{NodeGenerate, NodeMemory},
	} {
		if err := g.AddConditionalEdge(pair[0], unlessErrors(pair[1])); err != nil {
			return nil, err
		}
	}
	if err := g.AddFinish(NodeMemory); err != nil {
		return nil, err
	}
	if err := g.AddFinish(NodeReport); err != nil {
		return nil, err
	}

	return g.Compile(cfg.Options...)
}

func describe(desc string, fn graph.NodeFunc[*graph.State]) graph.Node[*graph.State] {
	return graph.Describe[*graph.State](desc, fn)
}

// unlessErrors routes to next, or to the report node once any error has
// been recorded.
func unlessErrors(next string) graph.Router[*graph.State] {
	return func(s *graph.State) graph.Next {
		if s.HasErrors() {
			return graph.Goto(NodeReport)
		}
		return graph.Goto(next)
	}
}
