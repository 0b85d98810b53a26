package stages

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/vk/shipline/internal/artifact"
	"github.com/vk/shipline/internal/config"
	"github.com/vk/shipline/internal/matrix"
	"github.com/vk/shipline/internal/packstep"
	"github.com/vk/shipline/internal/pipeline"
	"github.com/vk/shipline/internal/remote"
	"github.com/vk/shipline/internal/report"
)

// fakeService is an in-memory remote.Service that records calls.
type fakeService struct {
	mu            sync.Mutex
	createErr     error
	uploadErr     error
	createCalls   int
	uploadedNames []string
}

func (f *fakeService) CreateRelease(_ context.Context, tag string, draft, prerelease bool) (*remote.ReleaseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &remote.ReleaseRecord{
		Tag:        tag,
		Draft:      draft,
		Prerelease: prerelease,
		UploadURL:  "https://up.example.com/releases/1",
	}, nil
}

func (f *fakeService) PublishArtifact(context.Context, string, []byte) error { return nil }

func (f *fakeService) FetchArtifact(context.Context, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeService) UploadAsset(_ context.Context, _, _, assetName, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploadedNames = append(f.uploadedNames, assetName)
	return nil
}

// fakeBuilder returns a canned binary path, or fails for one chosen cell.
type fakeBuilder struct {
	failCell string
	mu       sync.Mutex
	built    []string
}

func (f *fakeBuilder) Build(_ context.Context, cell *matrix.Cell) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cell.ID() == f.failCell {
		return "", errors.New("compile failed")
	}
	f.built = append(f.built, cell.ID())
	return "target/release/wascchost", nil
}

type fakePackager struct{}

func (fakePackager) Package(_ context.Context, cell *matrix.Cell, binaryPath string) (*packstep.Asset, error) {
	name := packstep.AssetName("wascchost", "v2.0.0", cell, "x86_64")
	return &packstep.Asset{
		Cell:        cell,
		ArchivePath: binaryPath + ".zip",
		Name:        name,
		ContentType: "application/zip",
	}, nil
}

type fakeRegistrar struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRegistrar) PublishPackage(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func testEnv(svc *fakeService) *Env {
	return &Env{
		Model: &config.Model{
			Pipeline: config.PipelineSettings{Binary: "wascchost", Arch: "x86_64", Prerelease: true},
			Stages: []*config.StageGroup{
				{Type: "release", Name: "create"},
				{Type: "publish", Name: "assets", Matrix: true, DependsOn: []string{"release.create"}},
				{Type: "registry", Name: "crates", DependsOn: []string{"publish.assets"}},
			},
		},
		Tag:       "v2.0.0",
		Remote:    svc,
		Store:     artifact.NewMemory(),
		Builder:   &fakeBuilder{},
		Packager:  fakePackager{},
		Registrar: &fakeRegistrar{},
		Recorder:  report.NewRecorder(),
	}
}

func testCells(t *testing.T) []*matrix.Cell {
	t.Helper()
	return matrix.Expand([]matrix.Dimension{
		{Name: "os", Values: []string{"linux", "windows"}},
		{Name: "engine", Values: []string{"wasm3", "wasmtime"}},
	})
}

func TestBuildSpecs_FansOutMatrixGroups(t *testing.T) {
	// --- Arrange ---
	env := testEnv(&fakeService{})
	cells := testCells(t)

	// --- Act ---
	specs, err := BuildSpecs(env, Core(), cells)

	// --- Assert ---
	if err != nil {
		t.Fatalf("BuildSpecs failed: %v", err)
	}
	// 1 release + 4 publish cells + 1 registry.
	if len(specs) != 6 {
		t.Fatalf("expected 6 node specs, got %d", len(specs))
	}

	ids := make(map[string]bool)
	for _, s := range specs {
		ids[s.ID] = true
	}
	for _, want := range []string{
		"release.create",
		"publish.assets[linux-wasm3]",
		"publish.assets[windows-wasmtime]",
		"registry.crates",
	} {
		if !ids[want] {
			t.Errorf("missing node spec %q", want)
		}
	}
}

func TestBuildSpecs_UnknownStageType(t *testing.T) {
	env := testEnv(&fakeService{})
	env.Model.Stages = []*config.StageGroup{{Type: "teleport", Name: "x"}}

	_, err := BuildSpecs(env, Core(), nil)

	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected config.Error for unknown stage type, got %v", err)
	}
}

func TestBuildSpecs_MatrixStageWithoutCells(t *testing.T) {
	env := testEnv(&fakeService{})

	_, err := BuildSpecs(env, Core(), nil)

	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected config.Error for empty matrix, got %v", err)
	}
}

func TestReleaseStage_PublishesUploadURL(t *testing.T) {
	svc := &fakeService{}
	env := testEnv(svc)
	handler := releaseStage(env, env.Model.Stages[0], nil)

	err := handler(context.Background(), &pipeline.Node{ID: "release.create"})

	if err != nil {
		t.Fatalf("release stage failed: %v", err)
	}
	if svc.createCalls != 1 {
		t.Errorf("expected exactly one create call, got %d", svc.createCalls)
	}
	payload, err := env.Store.Get(context.Background(), UploadURLKey)
	if err != nil {
		t.Fatalf("upload url was not published: %v", err)
	}
	if string(payload) != "https://up.example.com/releases/1" {
		t.Errorf("published url = %q", payload)
	}
}

func TestReleaseStage_CreateFailurePropagates(t *testing.T) {
	svc := &fakeService{createErr: &remote.Error{Op: "create release", Status: 503, Err: errors.New("down")}}
	env := testEnv(svc)
	handler := releaseStage(env, env.Model.Stages[0], nil)

	err := handler(context.Background(), &pipeline.Node{ID: "release.create"})

	var remoteErr *remote.Error
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected the remote error to propagate, got %v", err)
	}
	if _, getErr := env.Store.Get(context.Background(), UploadURLKey); getErr == nil {
		t.Error("no upload url may be published when release creation failed")
	}
}

func TestPublishStage_RunsFullSequence(t *testing.T) {
	svc := &fakeService{}
	env := testEnv(svc)
	if err := env.Store.Put(context.Background(), UploadURLKey, []byte("https://up.example.com/releases/1")); err != nil {
		t.Fatal(err)
	}
	cell := testCells(t)[0] // linux-wasm3
	handler := publishStage(env, env.Model.Stages[1], cell)

	err := handler(context.Background(), &pipeline.Node{ID: "publish.assets[linux-wasm3]"})

	if err != nil {
		t.Fatalf("publish stage failed: %v", err)
	}
	if len(svc.uploadedNames) != 1 || svc.uploadedNames[0] != "wascchost-v2.0.0-linux-wasm3-x86_64.zip" {
		t.Errorf("uploaded assets = %v", svc.uploadedNames)
	}

	var stageNames []string
	for _, e := range env.Recorder.Entries() {
		stageNames = append(stageNames, e.Stage)
	}
	want := []string{"fetch-upload-url", "build", "package", "upload-asset"}
	if fmt.Sprint(stageNames) != fmt.Sprint(want) {
		t.Errorf("recorded stages = %v, want %v", stageNames, want)
	}
}

func TestPublishStage_BuildFailureStopsCell(t *testing.T) {
	svc := &fakeService{}
	env := testEnv(svc)
	env.Builder = &fakeBuilder{failCell: "windows-wasm3"}
	if err := env.Store.Put(context.Background(), UploadURLKey, []byte("url")); err != nil {
		t.Fatal(err)
	}
	cells := testCells(t)
	var windowsCell *matrix.Cell
	for _, c := range cells {
		if c.ID() == "windows-wasm3" {
			windowsCell = c
		}
	}
	handler := publishStage(env, env.Model.Stages[1], windowsCell)

	err := handler(context.Background(), &pipeline.Node{ID: "publish.assets[windows-wasm3]"})

	if err == nil {
		t.Fatal("expected the cell to fail")
	}
	if len(svc.uploadedNames) != 0 {
		t.Errorf("no asset may be uploaded for a failed build, got %v", svc.uploadedNames)
	}
}

func TestPublishStage_MissingUploadURL(t *testing.T) {
	env := testEnv(&fakeService{})
	cell := testCells(t)[0]
	handler := publishStage(env, env.Model.Stages[1], cell)

	err := handler(context.Background(), &pipeline.Node{ID: "publish.assets[linux-wasm3]"})

	if !errors.Is(err, artifact.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for the unpublished upload url, got %v", err)
	}
}

func TestRegistryStage_DelegatesToRegistrar(t *testing.T) {
	env := testEnv(&fakeService{})
	registrar := &fakeRegistrar{}
	env.Registrar = registrar
	handler := registryStage(env, env.Model.Stages[2], nil)

	err := handler(context.Background(), &pipeline.Node{ID: "registry.crates"})

	if err != nil {
		t.Fatalf("registry stage failed: %v", err)
	}
	if registrar.calls != 1 {
		t.Errorf("registrar called %d times, want 1", registrar.calls)
	}
}
