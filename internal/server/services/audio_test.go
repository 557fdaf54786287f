package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/dmitrijs2005/audiokeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestUploadText(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	gbk, err := simplifiedchinese.GBK.NewEncoder().String("你好，世界")
	require.NoError(t, err)

	tests := []struct {
		name    string
		file    string
		content []byte
		want    string
		wantErr error
	}{
		{name: "utf8", file: "a.txt", content: []byte("hello"), want: "hello"},
		{name: "utf8 bom", file: "a.TXT", content: append([]byte{0xEF, 0xBB, 0xBF}, "hi"...), want: "hi"},
		{name: "gbk", file: "b.txt", content: []byte(gbk), want: "你好，世界"},
		{name: "wrong extension", file: "a.md", content: []byte("x"), wantErr: common.ErrorInvalidInput},
		{name: "too large", file: "a.txt", content: make([]byte, MaxTextSize+1), wantErr: common.ErrorInvalidInput},
		{name: "undecodable", file: "a.txt", content: []byte{0x81, 0x20, 0xFF}, wantErr: common.ErrorInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.audio.UploadText(ctx, alice, tt.file, tt.content)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = env.audio.UploadText(ctx, nil, "a.txt", []byte("x"))
	assert.Equal(t, common.ErrorForbidden, err)
}

func TestSynthesize(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	env.synth.path = "/output/temp/x.wav"
	got, err := env.audio.Synthesize(ctx, alice, "hello", models.EmotionAnger)
	require.NoError(t, err)
	assert.Equal(t, "/output/temp/x.wav", got)

	_, err = env.audio.Synthesize(ctx, alice, "   ", models.EmotionJoy)
	assert.ErrorIs(t, err, common.ErrorInvalidInput)

	_, err = env.audio.Synthesize(ctx, alice, "hello", models.Emotion(7))
	assert.ErrorIs(t, err, common.ErrorInvalidInput)

	env.synth.err = errors.New("connection refused")
	_, err = env.audio.Synthesize(ctx, alice, "hello", models.EmotionJoy)
	assert.ErrorIs(t, err, common.ErrorUpstream)

	env.synth.err = internalErr("write", errors.New("disk full"))
	_, err = env.audio.Synthesize(ctx, alice, "hello", models.EmotionJoy)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NotErrorIs(t, err, common.ErrorUpstream)
}

func TestSave(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	logical := env.scratch(t, "abc.wav")

	audio, err := env.audio.Save(ctx, alice, models.EmotionSorrow, logical)
	require.NoError(t, err)
	assert.NotZero(t, audio.ID)
	assert.Equal(t, alice.ID, audio.UserID)
	assert.Equal(t, "/output/data/abc.wav", audio.Path)
	assert.Equal(t, models.EmotionSorrow, audio.Emotion)

	assert.FileExists(t, filepath.Join(env.cfg.DataRoot(), "abc.wav"))
	assert.FileExists(t, filepath.Join(env.cfg.TempRoot(), "abc.wav"))
	assert.Equal(t, []string{"users/" + itoa(alice.ID) + "/abc.wav"}, env.mirror.puts)

	list, err := env.audio.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, audio.ID, list[0].ID)
}

func TestSave_Rejections(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(env.cfg.ProjectRoot, "secret.db"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(env.cfg.DataRoot(), "saved.wav"), []byte("x"), 0o600))

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "outside project", path: "/output/temp/../../secret.db", wantErr: common.ErrIllegalPath},
		{name: "data root is not scratch", path: "/output/data/saved.wav", wantErr: common.ErrIllegalPath},
		{name: "empty", path: "", wantErr: common.ErrIllegalPath},
		{name: "scratch root", path: "/output/temp/", wantErr: common.ErrIllegalPath},
		{name: "scratch root without slash", path: "/output/temp", wantErr: common.ErrIllegalPath},
		{name: "missing", path: "/output/temp/missing.wav", wantErr: common.ErrorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.audio.Save(ctx, alice, models.EmotionJoy, tt.path)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := env.audio.Save(ctx, alice, models.Emotion(-1), env.scratch(t, "a.wav"))
	assert.ErrorIs(t, err, common.ErrorInvalidInput)

	list, err := env.audio.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, env.mirror.puts)
}

func TestSave_MirrorFailureIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.mirror.err = errors.New("bucket gone")

	_, err := env.audio.Save(context.Background(), alice, models.EmotionFear, env.scratch(t, "m.wav"))
	assert.NoError(t, err)
}

func TestList_OnlyOwn(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	ctx := context.Background()

	_, err := env.audio.Save(ctx, alice, models.EmotionJoy, env.scratch(t, "a1.wav"))
	require.NoError(t, err)
	_, err = env.audio.Save(ctx, alice, models.EmotionJoy, env.scratch(t, "a2.wav"))
	require.NoError(t, err)
	_, err = env.audio.Save(ctx, bob, models.EmotionJoy, env.scratch(t, "b1.wav"))
	require.NoError(t, err)

	list, err := env.audio.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "/output/data/a2.wav", list[0].Path)
	for _, a := range list {
		assert.Equal(t, alice.ID, a.UserID)
	}

	carol := env.register(t, "carol")
	list, err = env.audio.List(ctx, carol)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register(t, "admin")
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	ctx := context.Background()

	save := func(t *testing.T, owner *models.User, name string) *models.Audio {
		t.Helper()
		a, err := env.audio.Save(ctx, owner, models.EmotionJoy, env.scratch(t, name))
		require.NoError(t, err)
		return a
	}

	t.Run("owner", func(t *testing.T) {
		a := save(t, alice, "own.wav")
		require.NoError(t, env.audio.Delete(ctx, alice, a.ID))
		assert.NoFileExists(t, filepath.Join(env.cfg.DataRoot(), "own.wav"))
		assert.Contains(t, env.mirror.deletes, "users/"+itoa(alice.ID)+"/own.wav")

		err := env.audio.Delete(ctx, alice, a.ID)
		assert.Equal(t, common.ErrorNotFound, err)
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		a := save(t, alice, "keep.wav")
		err := env.audio.Delete(ctx, bob, a.ID)
		assert.Equal(t, common.ErrorForbidden, err)
		assert.FileExists(t, filepath.Join(env.cfg.DataRoot(), "keep.wav"))

		list, err := env.audio.List(ctx, alice)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("admin", func(t *testing.T) {
		a := save(t, bob, "b.wav")
		require.NoError(t, env.audio.Delete(ctx, admin, a.ID))
	})

	t.Run("file already missing", func(t *testing.T) {
		a := save(t, alice, "gone.wav")
		require.NoError(t, os.Remove(filepath.Join(env.cfg.DataRoot(), "gone.wav")))
		require.NoError(t, env.audio.Delete(ctx, alice, a.ID))

		_, err := env.rm.Audios(env.db).FindByID(ctx, a.ID)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("traversal is rejected and the record kept", func(t *testing.T) {
		secret := filepath.Join(env.cfg.ProjectRoot, "secret.db")
		require.NoError(t, os.WriteFile(secret, []byte("x"), 0o600))

		a, err := env.rm.Audios(env.db).Create(ctx, &models.Audio{
			UserID: alice.ID,
			Path:   "/output/data/../../secret.db",
		})
		require.NoError(t, err)

		err = env.audio.Delete(ctx, alice, a.ID)
		assert.ErrorIs(t, err, common.ErrorInvalidInput)
		assert.FileExists(t, secret)

		_, err = env.rm.Audios(env.db).FindByID(ctx, a.ID)
		assert.NoError(t, err)
	})

	t.Run("unknown id", func(t *testing.T) {
		err := env.audio.Delete(ctx, admin, 424242)
		assert.Equal(t, common.ErrorNotFound, err)
	})
}

func TestDelete_SymlinkOutsideOutput(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	outside := filepath.Join(env.cfg.ProjectRoot, "outside.wav")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))
	if err := os.Symlink(outside, filepath.Join(env.cfg.DataRoot(), "link.wav")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	a, err := env.rm.Audios(env.db).Create(ctx, &models.Audio{UserID: alice.ID, Path: "/output/data/link.wav"})
	require.NoError(t, err)

	err = env.audio.Delete(ctx, alice, a.ID)
	assert.ErrorIs(t, err, common.ErrIllegalPath)
	assert.FileExists(t, outside)
}

func TestDelete_RecordNamingADirectory(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	for _, p := range []string{"/output/temp", "/output/data", "/output/", "/output", "/output/data/"} {
		t.Run(p, func(t *testing.T) {
			a, err := env.rm.Audios(env.db).Create(ctx, &models.Audio{UserID: alice.ID, Path: p})
			require.NoError(t, err)

			err = env.audio.Delete(ctx, alice, a.ID)
			assert.ErrorIs(t, err, common.ErrIllegalPath)

			for _, dir := range []string{env.cfg.OutputRoot(), env.cfg.TempRoot(), env.cfg.DataRoot()} {
				assert.DirExists(t, dir)
			}

			_, err = env.rm.Audios(env.db).FindByID(ctx, a.ID)
			assert.NoError(t, err)
		})
	}

	_, err := env.audio.Save(ctx, alice, models.EmotionJoy, env.scratch(t, "after.wav"))
	assert.NoError(t, err)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
