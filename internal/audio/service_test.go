package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern-server/internal/domain"
	"github.com/lecternapp/lectern-server/internal/errors"
	"github.com/lecternapp/lectern-server/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeChapterStore struct {
	mu       sync.Mutex
	texts    map[string]string
	chapters map[string]domain.Chapter
	blobs    map[string][]byte
	blobErr  error
	statuses []domain.AudioStatus
}

func newFakeChapterStore() *fakeChapterStore {
	return &fakeChapterStore{
		texts:    make(map[string]string),
		chapters: make(map[string]domain.Chapter),
		blobs:    make(map[string][]byte),
	}
}

func (s *fakeChapterStore) LoadText(_ context.Context, _, chapterID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.texts[chapterID]
	if !ok {
		return "", fmt.Errorf("no text for chapter %s", chapterID)
	}
	return text, nil
}

func (s *fakeChapterStore) UpdateChapter(_ context.Context, chapter domain.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chapters[chapter.ID] = chapter
	s.statuses = append(s.statuses, chapter.AudioStatus)
	return nil
}

func (s *fakeChapterStore) PutAudioBlob(_ context.Context, chapterID, signature string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blobErr != nil {
		return s.blobErr
	}
	s.blobs[chapterID+":"+signature] = data
	return nil
}

func (s *fakeChapterStore) GetAudioBlob(_ context.Context, chapterID, signature string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blobErr != nil {
		return nil, s.blobErr
	}
	data, ok := s.blobs[chapterID+":"+signature]
	if !ok {
		return nil, errors.NotFoundf("no cached audio for chapter %s", chapterID)
	}
	return data, nil
}

type fakeSynthesizer struct {
	out []byte
	err error

	mu     sync.Mutex
	texts  []string
	voices []string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text, voiceID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.voices = append(f.voices, voiceID)
	return f.out, f.err
}

func TestSignatureDeterministicAndSensitive(t *testing.T) {
	a := Signature("voice-a", "r2", "mp3v1")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Signature("voice-a", "r2", "mp3v1"))

	assert.NotEqual(t, a, Signature("voice-b", "r2", "mp3v1"))
	assert.NotEqual(t, a, Signature("voice-a", "r3", "mp3v1"))
	assert.NotEqual(t, a, Signature("voice-a", "r2", "mp3v2"))
	// Field boundaries matter: "ab"+"c" must not collide with "a"+"bc".
	assert.NotEqual(t, Signature("ab", "c", "x"), Signature("a", "bc", "x"))
}

func TestGenerateAndPersistUploads(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")

	store := newFakeChapterStore()
	synth := &fakeSynthesizer{out: []byte("mp3 bytes")}
	svc := NewService(synth, store, drive, "mp3v1", testLogger())

	chapter := domain.Chapter{ID: "ch1", BookID: "b1", Content: "read me aloud"}
	err := svc.GenerateAndPersist(context.Background(), &GenerateRequest{
		Chapter:       chapter,
		BookID:        "b1",
		VoiceID:       "voice-a",
		Rules:         "r2",
		FolderID:      folder,
		TargetName:    "c_ch1.mp3",
		UploadToCloud: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"read me aloud"}, synth.texts)
	assert.Equal(t, []string{"voice-a"}, synth.voices)

	saved := store.chapters["ch1"]
	assert.Equal(t, domain.AudioStatusReady, saved.AudioStatus)
	assert.NotEmpty(t, saved.CloudAudioFileID)
	assert.Equal(t, Signature("voice-a", "r2", "mp3v1"), saved.AudioSignature)
	assert.Equal(t, "mp3 bytes", drive.Content(saved.CloudAudioFileID))

	// Status marched through generating before ready.
	assert.Equal(t, domain.AudioStatusGenerating, store.statuses[0])
	assert.Equal(t, domain.AudioStatusReady, store.statuses[len(store.statuses)-1])

	// Blob cached under the signature.
	sig := Signature("voice-a", "r2", "mp3v1")
	assert.Equal(t, []byte("mp3 bytes"), store.blobs["ch1:"+sig])
}

func TestGenerateAndPersistLoadsTextWhenNotInline(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")

	store := newFakeChapterStore()
	store.texts["ch1"] = "stored text"
	synth := &fakeSynthesizer{out: []byte("audio")}
	svc := NewService(synth, store, drive, "mp3v1", testLogger())

	err := svc.GenerateAndPersist(context.Background(), &GenerateRequest{
		Chapter:       domain.Chapter{ID: "ch1", BookID: "b1"},
		BookID:        "b1",
		VoiceID:       "v",
		FolderID:      folder,
		TargetName:    "c_ch1.mp3",
		UploadToCloud: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stored text"}, synth.texts)
}

func TestGenerateAndPersistMissingText(t *testing.T) {
	drive, _ := storage.NewFake()
	store := newFakeChapterStore()
	svc := NewService(&fakeSynthesizer{}, store, drive, "mp3v1", testLogger())

	err := svc.GenerateAndPersist(context.Background(), &GenerateRequest{
		Chapter: domain.Chapter{ID: "ch1", BookID: "b1"},
		BookID:  "b1",
	})
	require.Error(t, err)
	// Never reached generating; nothing was persisted.
	assert.Empty(t, store.statuses)
}

func TestGenerateAndPersistSynthesisFailure(t *testing.T) {
	drive, _ := storage.NewFake()
	store := newFakeChapterStore()
	synth := &fakeSynthesizer{err: fmt.Errorf("engine down")}
	svc := NewService(synth, store, drive, "mp3v1", testLogger())

	err := svc.GenerateAndPersist(context.Background(), &GenerateRequest{
		Chapter: domain.Chapter{ID: "ch1", BookID: "b1", Content: "text"},
		BookID:  "b1",
		VoiceID: "v",
	})
	require.Error(t, err)
	assert.Equal(t, domain.AudioStatusFailed, store.chapters["ch1"].AudioStatus)
}

func TestGenerateAndPersistUploadFailure(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")
	drive.FailWith("uploadOrReplace", "c_ch1.mp3", fmt.Errorf("quota exceeded"))

	store := newFakeChapterStore()
	svc := NewService(&fakeSynthesizer{out: []byte("audio")}, store, drive, "mp3v1", testLogger())

	err := svc.GenerateAndPersist(context.Background(), &GenerateRequest{
		Chapter:       domain.Chapter{ID: "ch1", BookID: "b1", Content: "text"},
		BookID:        "b1",
		VoiceID:       "v",
		FolderID:      folder,
		TargetName:    "c_ch1.mp3",
		UploadToCloud: true,
	})
	require.Error(t, err)

	saved := store.chapters["ch1"]
	assert.Equal(t, domain.AudioStatusFailed, saved.AudioStatus)
	// The remote write never happened, so no file ID was recorded.
	assert.Empty(t, saved.CloudAudioFileID)
}

func TestGenerateAndPersistBlobCacheFailureIsNonFatal(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")

	store := newFakeChapterStore()
	store.blobErr = fmt.Errorf("disk full")
	svc := NewService(&fakeSynthesizer{out: []byte("audio")}, store, drive, "mp3v1", testLogger())

	err := svc.GenerateAndPersist(context.Background(), &GenerateRequest{
		Chapter:       domain.Chapter{ID: "ch1", BookID: "b1", Content: "text"},
		BookID:        "b1",
		VoiceID:       "v",
		FolderID:      folder,
		TargetName:    "c_ch1.mp3",
		UploadToCloud: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AudioStatusReady, store.chapters["ch1"].AudioStatus)
}

func TestGenerateAndPersistReusesCachedBlob(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")

	store := newFakeChapterStore()
	sig := Signature("voice-a", "r2", "mp3v1")
	store.blobs["ch1:"+sig] = []byte("cached audio")

	synth := &fakeSynthesizer{err: fmt.Errorf("engine down")}
	svc := NewService(synth, store, drive, "mp3v1", testLogger())

	// No text anywhere: a cache hit needs no synthesis input.
	err := svc.GenerateAndPersist(context.Background(), &GenerateRequest{
		Chapter:       domain.Chapter{ID: "ch1", BookID: "b1"},
		BookID:        "b1",
		VoiceID:       "voice-a",
		Rules:         "r2",
		FolderID:      folder,
		TargetName:    "c_ch1.mp3",
		UploadToCloud: true,
	})
	require.NoError(t, err)

	// The synthesizer was never invoked.
	assert.Empty(t, synth.texts)

	saved := store.chapters["ch1"]
	assert.Equal(t, domain.AudioStatusReady, saved.AudioStatus)
	assert.Equal(t, sig, saved.AudioSignature)
	assert.Equal(t, "cached audio", drive.Content(saved.CloudAudioFileID))

	// Straight to ready; the generating state belongs to synthesis.
	assert.Equal(t, []domain.AudioStatus{domain.AudioStatusReady}, store.statuses)
}

func TestGenerateAndPersistCachedBlobSignatureMismatch(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")

	store := newFakeChapterStore()
	// Cached under the old voice; the request asks for a new one.
	store.blobs["ch1:"+Signature("voice-old", "r2", "mp3v1")] = []byte("stale audio")

	synth := &fakeSynthesizer{out: []byte("fresh audio")}
	svc := NewService(synth, store, drive, "mp3v1", testLogger())

	err := svc.GenerateAndPersist(context.Background(), &GenerateRequest{
		Chapter:       domain.Chapter{ID: "ch1", BookID: "b1", Content: "text"},
		BookID:        "b1",
		VoiceID:       "voice-new",
		Rules:         "r2",
		FolderID:      folder,
		TargetName:    "c_ch1.mp3",
		UploadToCloud: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"text"}, synth.texts)
	saved := store.chapters["ch1"]
	assert.Equal(t, "fresh audio", drive.Content(saved.CloudAudioFileID))
}

func TestGenerateAndPersistReplacesExistingUpload(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")
	existing := drive.AddFile(folder, "c_ch1.mp3", "old audio", time.Now())

	store := newFakeChapterStore()
	svc := NewService(&fakeSynthesizer{out: []byte("new audio")}, store, drive, "mp3v1", testLogger())

	err := svc.GenerateAndPersist(context.Background(), &GenerateRequest{
		Chapter:       domain.Chapter{ID: "ch1", BookID: "b1", Content: "text", CloudAudioFileID: existing},
		BookID:        "b1",
		VoiceID:       "v",
		FolderID:      folder,
		TargetName:    "c_ch1.mp3",
		UploadToCloud: true,
	})
	require.NoError(t, err)

	// Replaced in place instead of accumulating a second file.
	assert.Equal(t, existing, store.chapters["ch1"].CloudAudioFileID)
	assert.Equal(t, "new audio", drive.Content(existing))
	assert.Equal(t, []string{"c_ch1.mp3"}, drive.Names(folder))
}

func TestGenerateAndPersistLocalOnly(t *testing.T) {
	drive, _ := storage.NewFake()
	store := newFakeChapterStore()
	svc := NewService(&fakeSynthesizer{out: []byte("audio")}, store, drive, "mp3v1", testLogger())

	err := svc.GenerateAndPersist(context.Background(), &GenerateRequest{
		Chapter: domain.Chapter{ID: "ch1", BookID: "b1", Content: "text"},
		BookID:  "b1",
		VoiceID: "v",
	})
	require.NoError(t, err)

	saved := store.chapters["ch1"]
	assert.Equal(t, domain.AudioStatusReady, saved.AudioStatus)
	assert.Empty(t, saved.CloudAudioFileID)
}
