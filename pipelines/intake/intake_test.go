package intake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agentlib/workgraph/graph"
	"github.com/agentlib/workgraph/graph/store"
	"github.com/agentlib/workgraph/graph/tool"
)

var uploads = []string{"营业执照.jpg", "身份证正面.jpg", "身份证反面.jpg", "经营者照片.jpg"}

func fixedNow() time.Time { return time.Date(2026, 1, 17, 9, 30, 0, 0, time.UTC) }

func licenseTool() *tool.MockTool {
	return &tool.MockTool{ToolName: "ocr", Responses: []map[string]any{{
		"name":           "Zhang San",
		"shop_name":      "Example Mart",
		"address":        "123 Example St",
		"business_scope": "groceries",
	}}}
}

func run(t *testing.T, cfg Config, state *graph.State) graph.Result[*graph.State] {
	t.Helper()
	if cfg.Now == nil {
		cfg.Now = fixedNow
	}
	wf, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	res, err := wf.Invoke(context.Background(), state)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	return res
}

func TestPipeline_HappyPath(t *testing.T) {
	mem := store.NewMemStore()
	ocr := licenseTool()

	res := run(t, Config{Extractor: ocr, Store: mem}, NewState(uploads))

	if got := strings.Join(res.Visited(), ","); got != "organize,extract,generate,memory" {
		t.Errorf("path = %s", got)
	}
	s := res.State
	if s.HasErrors() || len(s.Warnings) != 0 {
		t.Errorf("errors=%v warnings=%v", s.Errors, s.Warnings)
	}

	sc := s.Scope(Namespace)
	organized, _ := sc.Get(KeyOrganized)
	groups := organized.(map[string][]string)
	if len(groups[CategoryLicense]) != 1 || len(groups[CategoryIDCard]) != 2 || len(groups[CategoryPhoto]) != 1 {
		t.Errorf("organized = %v", groups)
	}

	if ocr.CallCount() != 1 || ocr.Calls[0]["file"] != "营业执照.jpg" {
		t.Errorf("extractor calls = %v", ocr.Calls)
	}

	app, _ := sc.Get(KeyApplication)
	application := app.(map[string]any)
	if application["type"] != ApplicationType || application["generated_at"] != "2026-01-17" {
		t.Errorf("application = %v", application)
	}

	id := sc.GetString(KeyMemoryID)
	rec, err := mem.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("memory record %q: %v", id, err)
	}
	if rec.Topic != "Business registration - Example Mart" || rec.Summary != "Zhang San applies to open Example Mart" {
		t.Errorf("record = %+v", rec)
	}
	found, _ := mem.FindByTag(context.Background(), "Application")
	if len(found) != 1 {
		t.Errorf("FindByTag = %v", found)
	}
}

func TestPipeline_HTTPExtractor(t *testing.T) {
	var requested map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&requested)
		_, _ = w.Write([]byte(`{"owner":{"name":"Li Si"},"shop":{"name":"Tea House","address":"8 River Rd"},"scope":"tea"}`))
	}))
	defer server.Close()

	ocr := tool.Func("ocr_http", func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return tool.NewHTTPTool().Call(ctx, map[string]any{"url": server.URL, "method": "POST", "json": in})
	})
	cfg := Config{
		Extractor: ocr,
		Store:     store.NewMemStore(),
		Fields: map[string]string{
			"name":           "owner.name",
			"shop_name":      "shop.name",
			"address":        "shop.address",
			"business_scope": "scope",
		},
	}

	res := run(t, cfg, NewState([]string{"business_license.png"}))
	if !res.Success || res.State.HasErrors() {
		t.Fatalf("errors = %v", res.State.Errors)
	}
	if requested["file"] != "business_license.png" || requested["category"] != CategoryLicense {
		t.Errorf("request = %v", requested)
	}
	info, _ := res.State.Scope(Namespace).Get(KeyLicenseInfo)
	if info.(map[string]string)["shop_name"] != "Tea House" {
		t.Errorf("license info = %v", info)
	}
}

func TestPipeline_RecoverableErrors(t *testing.T) {
	tests := []struct {
		name      string
		files     []string
		extractor tool.Tool
		wantPath  string
		wantError string
	}{
		{
			name:      "no files",
			extractor: licenseTool(),
			wantPath:  "organize,report",
			wantError: "no files uploaded",
		},
		{
			name:      "no license",
			files:     []string{"photo.jpg"},
			extractor: licenseTool(),
			wantPath:  "organize,extract,report",
			wantError: "no business license",
		},
		{
			name:      "extractor failure",
			files:     []string{"license.jpg"},
			extractor: &tool.MockTool{ToolName: "ocr", Err: errors.New("ocr offline")},
			wantPath:  "organize,extract,report",
			wantError: "ocr offline",
		},
		{
			name:      "extraction service error status",
			files:     []string{"license.jpg"},
			extractor: &tool.MockTool{ToolName: "ocr", Responses: []map[string]any{{"status_code": 503, "body": ""}}},
			wantPath:  "organize,extract,report",
			wantError: "status 503",
		},
		{
			name:      "unparseable body",
			files:     []string{"license.jpg"},
			extractor: &tool.MockTool{ToolName: "ocr", Responses: []map[string]any{{"status_code": 200, "body": "<html>"}}},
			wantPath:  "organize,extract,report",
			wantError: "not valid JSON",
		},
		{
			name:      "missing owner",
			files:     []string{"license.jpg"},
			extractor: &tool.MockTool{ToolName: "ocr", Responses: []map[string]any{{"shop_name": "Kiosk"}}},
			wantPath:  "organize,extract,generate,report",
			wantError: "name is missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemStore()
			res := run(t, Config{Extractor: tt.extractor, Store: mem}, NewState(tt.files))

			if got := strings.Join(res.Visited(), ","); got != tt.wantPath {
				t.Errorf("path = %s, want %s", got, tt.wantPath)
			}
			if !res.Success {
				t.Errorf("recoverable errors failed the run: %v", res.Err)
			}
			report := res.State.Scope(Namespace).GetString(KeyReport)
			if !strings.Contains(report, tt.wantError) {
				t.Errorf("report = %q, want mention of %q", report, tt.wantError)
			}
			if recs, _ := mem.List(context.Background(), 0); len(recs) != 0 {
				t.Errorf("record stored despite errors: %v", recs)
			}
		})
	}
}

func TestPipeline_StoreFailure(t *testing.T) {
	mem := store.NewMemStore()
	_ = mem.Close()

	wf, err := Build(Config{Extractor: licenseTool(), Store: mem, Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}
	res, err := wf.Invoke(context.Background(), NewState(uploads))
	if !errors.Is(err, store.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if res.FailedNode != NodeMemory || res.NodesExecuted != 3 {
		t.Errorf("failed=%q nodes=%d", res.FailedNode, res.NodesExecuted)
	}
}

func TestPipeline_WithoutStore(t *testing.T) {
	res := run(t, Config{Extractor: licenseTool()}, NewState(uploads))
	if !res.Success || len(res.State.Warnings) != 1 {
		t.Errorf("success=%v warnings=%v", res.Success, res.State.Warnings)
	}
}

func TestPipeline_ClonedState(t *testing.T) {
	// A JSON clone turns []string into []any.
	cloned, err := NewState(append(uploads, "notes.txt")).Clone()
	if err != nil {
		t.Fatal(err)
	}

	res := run(t, Config{Extractor: licenseTool(), Store: store.NewMemStore()}, cloned)
	if !res.Success || res.State.HasErrors() {
		t.Fatalf("errors = %v", res.State.Errors)
	}
	if len(res.State.Warnings) != 1 || !strings.Contains(res.State.Warnings[0], "notes.txt") {
		t.Errorf("warnings = %v", res.State.Warnings)
	}
}

func TestBuild_RequiresExtractor(t *testing.T) {
	if _, err := Build(Config{}); !errors.Is(err, errNoExtractor) {
		t.Errorf("expected errNoExtractor, got %v", err)
	}
}

func TestSummarize_UnknownFields(t *testing.T) {
	rec := Summarize(map[string]string{}, []string{"x"})
	if rec.Topic != "Business registration - unknown" || len(rec.KeyPoints) != 3 {
		t.Errorf("record = %+v", rec)
	}
}

func TestCategorize(t *testing.T) {
	tests := map[string]string{
		"Business_License.PNG": CategoryLicense,
		"id-card-front.jpg":    CategoryIDCard,
		"身份证反面.jpg":            CategoryIDCard,
		"owner_photo.jpg":      CategoryPhoto,
		"lease.pdf":            CategoryOther,
	}
	for file, want := range tests {
		if got := categorize(file, DefaultCategories); got != want {
			t.Errorf("categorize(%q) = %q, want %q", file, got, want)
		}
	}
}
