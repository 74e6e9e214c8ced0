package service

import (
	"context"
	"errors"
	"fmt"

	"doc-qa-go/internal/model"
	"doc-qa-go/pkg/llm"
	"doc-qa-go/pkg/vectordb"
)

// fakeVectorDB 是 vectordb.Provider 的内存实现，供服务层测试使用。
type fakeVectorDB struct {
	collections map[string]map[int]string // name -> recordID -> text
	searchHits  []vectordb.RetrievedDocument
	insertErr   error
}

func newFakeVectorDB() *fakeVectorDB {
	return &fakeVectorDB{collections: make(map[string]map[int]string)}
}

func (f *fakeVectorDB) Connect(ctx context.Context) error    { return nil }
func (f *fakeVectorDB) Disconnect(ctx context.Context) error { return nil }

func (f *fakeVectorDB) IsCollectionExisted(ctx context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeVectorDB) ListAllCollections(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.collections))
	for name := range f.collections {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeVectorDB) GetCollectionInfo(ctx context.Context, name string) (*vectordb.CollectionInfo, error) {
	records, ok := f.collections[name]
	if !ok {
		return &vectordb.CollectionInfo{Name: name, Exists: false}, nil
	}
	return &vectordb.CollectionInfo{Name: name, Exists: true, RecordCount: int64(len(records)), Status: "green"}, nil
}

func (f *fakeVectorDB) CreateCollection(ctx context.Context, name string, embeddingSize int, doReset bool) (bool, error) {
	if doReset {
		delete(f.collections, name)
	}
	if _, ok := f.collections[name]; ok {
		return false, nil
	}
	f.collections[name] = make(map[int]string)
	return true, nil
}

func (f *fakeVectorDB) DeleteCollection(ctx context.Context, name string) (bool, error) {
	if _, ok := f.collections[name]; !ok {
		return false, nil
	}
	delete(f.collections, name)
	return true, nil
}

func (f *fakeVectorDB) InsertOne(ctx context.Context, name, text string, vector []float32, metadata map[string]interface{}, recordID int) error {
	return f.InsertMany(ctx, name, []string{text}, [][]float32{vector}, []map[string]interface{}{metadata}, []int{recordID}, 1)
}

func (f *fakeVectorDB) InsertMany(ctx context.Context, name string, texts []string, vectors [][]float32, metadatas []map[string]interface{}, recordIDs []int, batchSize int) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	records, ok := f.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, name)
	}
	for i, text := range texts {
		records[recordIDs[i]] = text
	}
	return nil
}

func (f *fakeVectorDB) SearchByVector(ctx context.Context, name string, vector []float32, limit int) ([]vectordb.RetrievedDocument, error) {
	if _, ok := f.collections[name]; !ok {
		return []vectordb.RetrievedDocument{}, nil
	}
	if len(f.searchHits) > limit {
		return f.searchHits[:limit], nil
	}
	return f.searchHits, nil
}

// fakeLLM 是 llm.Provider 的测试替身。
type fakeLLM struct {
	generatedAnswer string
	generateErr     error
	embedErr        error

	lastPrompt       string
	lastHistory      []llm.Message
	lastDocumentType string
	embeddedTexts    []string
}

func (f *fakeLLM) SetGenerationModel(modelID string)                {}
func (f *fakeLLM) SetEmbeddingModel(modelID string, dimensions int) {}

func (f *fakeLLM) GenerateText(ctx context.Context, prompt string, history []llm.Message, opts *llm.GenerationOptions) (string, []llm.Message, error) {
	if f.generateErr != nil {
		return "", nil, f.generateErr
	}
	f.lastPrompt = prompt
	f.lastHistory = history
	updated := append(append([]llm.Message{}, history...), f.ConstructPrompt(prompt, llm.RoleUser))
	return f.generatedAnswer, updated, nil
}

func (f *fakeLLM) EmbedTexts(ctx context.Context, texts []string, documentType string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.lastDocumentType = documentType
	f.embeddedTexts = append(f.embeddedTexts, texts...)
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i), 1.0}
	}
	return vectors, nil
}

func (f *fakeLLM) ConstructPrompt(text, role string) llm.Message {
	return llm.Message{Role: role, Content: text}
}

// fakeProjectRepo 是 repository.ProjectRepository 的内存实现。
type fakeProjectRepo struct {
	projects map[string]*model.Project
	nextID   uint
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]*model.Project), nextID: 1}
}

func (f *fakeProjectRepo) Create(project *model.Project) error {
	project.ID = f.nextID
	f.nextID++
	f.projects[project.Code] = project
	return nil
}

func (f *fakeProjectRepo) GetByCode(code string) (*model.Project, error) {
	return f.projects[code], nil
}

func (f *fakeProjectRepo) GetOrCreateByCode(code string) (*model.Project, error) {
	if p, ok := f.projects[code]; ok {
		return p, nil
	}
	p := &model.Project{Code: code}
	_ = f.Create(p)
	return p, nil
}

func (f *fakeProjectRepo) ListAll(page, pageSize int) ([]*model.Project, int64, error) {
	all := make([]*model.Project, 0, len(f.projects))
	for _, p := range f.projects {
		all = append(all, p)
	}
	return all, int64(len(all)), nil
}

// fakeChunkRepo 是 repository.ChunkRepository 的内存实现，分页语义与真实实现一致。
type fakeChunkRepo struct {
	chunks  []*model.DataChunk
	findErr error
}

func (f *fakeChunkRepo) ReplaceForSource(projectID uint, sourceFile string, chunks []*model.DataChunk) error {
	kept := f.chunks[:0]
	for _, c := range f.chunks {
		if c.ProjectID != projectID || c.SourceFile != sourceFile {
			kept = append(kept, c)
		}
	}
	f.chunks = append(kept, chunks...)
	return nil
}

func (f *fakeChunkRepo) FindPageByProject(projectID uint, pageNo, pageSize int) ([]*model.DataChunk, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var matched []*model.DataChunk
	for _, c := range f.chunks {
		if c.ProjectID == projectID {
			matched = append(matched, c)
		}
	}
	start := (pageNo - 1) * pageSize
	if start >= len(matched) {
		return []*model.DataChunk{}, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (f *fakeChunkRepo) CountByProject(projectID uint) (int64, error) {
	var count int64
	for _, c := range f.chunks {
		if c.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}

// fakeVectorIndex 是 VectorIndexService 的测试替身，记录每次 IndexChunks 调用。
type indexCall struct {
	projectCode string
	chunkCount  int
	startID     int
}

type fakeVectorIndex struct {
	calls        []indexCall
	ensureCalls  []bool
	failAtCall   int // 第 n 次 IndexChunks 调用失败（从 1 开始），0 表示不失败
	searchResult []vectordb.RetrievedDocument
	searchErr    error
}

func (f *fakeVectorIndex) CollectionName(projectCode string) string {
	return "collection_" + projectCode
}

func (f *fakeVectorIndex) GetCollectionInfo(ctx context.Context, projectCode string) (*vectordb.CollectionInfo, error) {
	return &vectordb.CollectionInfo{Name: f.CollectionName(projectCode), Exists: true}, nil
}

func (f *fakeVectorIndex) ResetCollection(ctx context.Context, projectCode string) (bool, error) {
	return true, nil
}

func (f *fakeVectorIndex) EnsureCollection(ctx context.Context, projectCode string, doReset bool) error {
	f.ensureCalls = append(f.ensureCalls, doReset)
	return nil
}

func (f *fakeVectorIndex) IndexChunks(ctx context.Context, projectCode string, chunks []*model.DataChunk, startID int) error {
	if f.failAtCall > 0 && len(f.calls)+1 == f.failAtCall {
		return errors.New("backend unavailable")
	}
	f.calls = append(f.calls, indexCall{projectCode: projectCode, chunkCount: len(chunks), startID: startID})
	return nil
}

func (f *fakeVectorIndex) SearchByText(ctx context.Context, projectCode, text string, limit int) ([]vectordb.RetrievedDocument, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResult, nil
}
