package users

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/bioterms-backend/internal/store/testutil"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("password stored in the clear")
	}

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Error("correct password rejected")
	}

	ok, err = VerifyPassword(hash, "wrong")
	if err != nil {
		t.Fatalf("verify wrong: %v", err)
	}
	if ok {
		t.Error("wrong password accepted")
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	a, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password are identical")
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	for _, encoded := range []string{"", "plaintext", "$bcrypt$whatever"} {
		if _, err := VerifyPassword(encoded, "x"); err == nil {
			t.Errorf("VerifyPassword(%q) accepted a malformed hash", encoded)
		}
	}
}

func TestHashKey(t *testing.T) {
	raw, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(raw) != rawKeyLen*2 {
		t.Errorf("raw key length = %d, want %d hex chars", len(raw), rawKeyLen*2)
	}
	if HashKey("secret", raw) != HashKey("secret", raw) {
		t.Error("key hash is not deterministic")
	}
	if HashKey("secret", raw) == HashKey("other", raw) {
		t.Error("key hash ignores the server secret")
	}
}

func newTestRepo(t *testing.T) Repo {
	t.Helper()
	repo, err := NewRepo(testutil.SQLiteDB(t), testutil.Logger(t))
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func TestRepoCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	hash, err := HashPassword("initial")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := repo.Save(ctx, &User{Username: "admin", PasswordHash: hash}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, &User{Username: "admin", PasswordHash: hash}); err == nil {
		t.Error("duplicate username accepted")
	}

	user, err := repo.Get(ctx, "admin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user == nil || user.Username != "admin" || user.ID == uuid.Nil {
		t.Fatalf("get returned %+v", user)
	}

	missing, err := repo.Get(ctx, "nobody")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("missing user = %+v, want nil", missing)
	}

	rehash, err := HashPassword("rotated")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := repo.Update(ctx, &User{Username: "admin", PasswordHash: rehash}); err != nil {
		t.Fatalf("update: %v", err)
	}
	user, _ = repo.Get(ctx, "admin")
	if ok, _ := VerifyPassword(user.PasswordHash, "rotated"); !ok {
		t.Error("updated password does not verify")
	}
	if err := repo.Update(ctx, &User{Username: "nobody", PasswordHash: rehash}); err == nil {
		t.Error("update of missing user succeeded")
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("list = %d users, want 1", len(all))
	}

	if err := repo.Delete(ctx, "admin"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	user, _ = repo.Get(ctx, "admin")
	if user != nil {
		t.Error("user survives delete")
	}
}

func TestRepoAPIKeys(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := repo.Save(ctx, &User{Username: "admin", PasswordHash: hash}); err != nil {
		t.Fatalf("save user: %v", err)
	}

	raw, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	keyHash := HashKey("server-secret", raw)
	key := &APIKey{Name: "ci", KeyHash: keyHash}
	if err := repo.SaveAPIKey(ctx, "admin", key); err != nil {
		t.Fatalf("save key: %v", err)
	}
	if key.KeyID == uuid.Nil {
		t.Fatal("key id not assigned")
	}
	if err := repo.SaveAPIKey(ctx, "nobody", &APIKey{Name: "x", KeyHash: "h"}); err == nil {
		t.Error("key saved for missing user")
	}

	user, err := repo.GetByAPIKeyHash(ctx, keyHash)
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if user == nil || user.Username != "admin" {
		t.Fatalf("get by hash returned %+v", user)
	}
	if len(user.APIKeys) != 1 || user.APIKeys[0].Name != "ci" {
		t.Errorf("api keys = %+v", user.APIKeys)
	}

	// The raw key never matches the stored hash column directly.
	if user, _ := repo.GetByAPIKeyHash(ctx, raw); user != nil {
		t.Error("raw key resolved without hashing")
	}

	if err := repo.DeleteAPIKey(ctx, "admin", key.KeyID); err != nil {
		t.Fatalf("delete key: %v", err)
	}
	if err := repo.DeleteAPIKey(ctx, "admin", key.KeyID); err == nil {
		t.Error("double delete succeeded")
	}
	if user, _ := repo.GetByAPIKeyHash(ctx, keyHash); user != nil {
		t.Error("deleted key still resolves")
	}
}
