package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/ledger"
	"github.com/starford/gebo/internal/market"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/store"
	"github.com/starford/gebo/internal/upload"
)

// fakePipeline stands in for the upload orchestrator.
type fakePipeline struct {
	result *upload.Result
	err    error
	got    *upload.Request
}

func (f *fakePipeline) Process(_ context.Context, req upload.Request) (*upload.Result, error) {
	// Consume the file like the real pipeline does.
	_, _ = io.ReadAll(req.File)
	f.got = &req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// testEnv sets up a temp SQLite DB, services, and router for testing.
// authToken="" means disabled auth mode.
func testEnv(t *testing.T, authToken string) (*store.DB, *fakePipeline, http.Handler) {
	t.Helper()

	dbFile, err := os.CreateTemp("", "gebo-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pipe := &fakePipeline{result: &upload.Result{
		NoteID:  "generated",
		Summary: models.Summary{NoteID: "generated", Summary: "S"},
	}}
	h := NewHandler(db, market.New(db), ledger.New(db), pipe, nil)
	router := NewRouter(h, authToken != "", authToken, nil)
	return db, pipe, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signup(t *testing.T, router http.Handler, name, email string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/auth/signup", map[string]string{
		"name": name, "email": email, "password": "secret-password",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSignup(t *testing.T) {
	db, _, router := testEnv(t, "")

	signup(t, router, "Alice", "alice@x.com")

	// New accounts start with 100 points.
	pts, err := db.GetPoints("alice@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if pts != 100 {
		t.Errorf("points = %d, want 100", pts)
	}

	// Duplicate email.
	w := doJSON(t, router, http.MethodPost, "/auth/signup", map[string]string{
		"name": "Alice", "email": "alice@x.com", "password": "secret-password",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("duplicate signup status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("User already exists")) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSignupValidation(t *testing.T) {
	_, _, router := testEnv(t, "")

	cases := []map[string]string{
		{"name": "A", "email": "not-an-email", "password": "secret-password"},
		{"name": "", "email": "a@x.com", "password": "secret-password"},
		{"name": "A", "email": "a@x.com", "password": "short"},
	}
	for _, body := range cases {
		w := doJSON(t, router, http.MethodPost, "/auth/signup", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("signup %v status = %d, want 400", body, w.Code)
		}
	}
}

func TestPointsEndpoints(t *testing.T) {
	_, _, router := testEnv(t, "")
	signup(t, router, "Bob", "bob@x.com")

	// GET current balance.
	w := doJSON(t, router, http.MethodGet, "/users/points?email=bob@x.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get points status = %d", w.Code)
	}
	var got map[string]int
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got["points"] != 100 {
		t.Errorf("points = %d", got["points"])
	}

	// POST adds points.
	w = doJSON(t, router, http.MethodPost, "/users/points", map[string]any{"email": "bob@x.com", "amount": 40})
	if w.Code != http.StatusOK {
		t.Fatalf("add points status = %d, body = %s", w.Code, w.Body.String())
	}
	var addResp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &addResp)
	if addResp["message"] != "Points updated" {
		t.Errorf("message = %v", addResp["message"])
	}
	if addResp["PreviousPoints"].(float64) != 100 || addResp["Updatedpoints"].(float64) != 140 {
		t.Errorf("response = %v", addResp)
	}

	// PUT deducts points.
	w = doJSON(t, router, http.MethodPut, "/users/points", map[string]any{"email": "bob@x.com", "amount": 90})
	if w.Code != http.StatusOK {
		t.Fatalf("deduct points status = %d", w.Code)
	}
	var dedResp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &dedResp)
	if dedResp["message"] != "Points deducted" || dedResp["Updatedpoints"].(float64) != 50 {
		t.Errorf("response = %v", dedResp)
	}

	// Overdraft is rejected and the balance stays put.
	w = doJSON(t, router, http.MethodPut, "/users/points", map[string]any{"email": "bob@x.com", "amount": 51})
	if w.Code != http.StatusBadRequest {
		t.Errorf("overdraft status = %d", w.Code)
	}

	// Unknown user.
	w = doJSON(t, router, http.MethodGet, "/users/points?email=ghost@x.com", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d", w.Code)
	}
}

func TestBuy(t *testing.T) {
	db, _, router := testEnv(t, "")
	signup(t, router, "Buyer", "buyer@x.com")
	signup(t, router, "Seller", "seller@x.com")
	if err := db.InsertNote(models.Note{ID: "n1", Title: "Calculus", UploaderEmail: "seller@x.com"}, ""); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPatch, "/users/buy?buyerEmail=buyer@x.com&sellerEmail=seller@x.com&noteId=n1&amount=30", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("buy status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["message"] != "Transaction successful" || resp["noteTitle"] != "Calculus" {
		t.Errorf("response = %v", resp)
	}
	if resp["buyerPoints"].(float64) != 70 || resp["sellerPoints"].(float64) != 130 {
		t.Errorf("balances = %v", resp)
	}

	// Re-purchase is rejected.
	w = doJSON(t, router, http.MethodPatch, "/users/buy?buyerEmail=buyer@x.com&sellerEmail=seller@x.com&noteId=n1&amount=30", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("re-purchase status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Buyer already owns this note.")) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestBuyValidation(t *testing.T) {
	_, _, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPatch, "/users/buy?buyerEmail=b@x.com", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing params status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPatch, "/users/buy?buyerEmail=b@x.com&sellerEmail=s@x.com&noteId=n&amount=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad amount status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Amount must be a valid number.")) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestBuyInsufficientPoints(t *testing.T) {
	db, _, router := testEnv(t, "")
	signup(t, router, "Buyer", "buyer@x.com")
	signup(t, router, "Seller", "seller@x.com")
	if err := db.InsertNote(models.Note{ID: "n1", Title: "T", UploaderEmail: "seller@x.com"}, ""); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPatch, "/users/buy?buyerEmail=buyer@x.com&sellerEmail=seller@x.com&noteId=n1&amount=101", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Buyer does not have enough points.")) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestFriendsEndpoints(t *testing.T) {
	_, _, router := testEnv(t, "")
	signup(t, router, "Carol", "carol@x.com")

	w := doJSON(t, router, http.MethodPost, "/users/friends?email=carol@x.com&friendEmail=dave@x.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("add friend status = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["message"] != "Friend added" {
		t.Errorf("response = %v", resp)
	}

	w = doJSON(t, router, http.MethodGet, "/users/friends?email=carol@x.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get friends status = %d", w.Code)
	}
	resp = nil
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	friends := resp["friends"].([]any)
	if len(friends) != 1 || friends[0] != "dave@x.com" {
		t.Errorf("friends = %v", friends)
	}

	w = doJSON(t, router, http.MethodDelete, "/users/friends?email=carol@x.com&friendEmail=dave@x.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove friend status = %d", w.Code)
	}
	resp = nil
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["message"] != "Friend removed" || len(resp["friends"].([]any)) != 0 {
		t.Errorf("response = %v", resp)
	}

	// Unknown user.
	w = doJSON(t, router, http.MethodGet, "/users/friends?email=ghost@x.com", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d", w.Code)
	}
}

func TestUserNotes(t *testing.T) {
	db, _, router := testEnv(t, "")
	signup(t, router, "Eve", "eve@x.com")
	if err := db.InsertNote(models.Note{ID: "up1", Title: "Mine", UploaderEmail: "eve@x.com", UploaderName: "Eve"}, ""); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertNote(models.Note{ID: "b1", Title: "Bought", UploaderEmail: "other@x.com", UploaderName: "Other"}, ""); err != nil {
		t.Fatal(err)
	}
	if err := db.AddOwnedNote("eve@x.com", "up1"); err != nil {
		t.Fatal(err)
	}
	if err := db.AddOwnedNote("eve@x.com", "b1"); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodGet, "/users/notes?email=eve@x.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var shelf ShelfResponse
	_ = json.Unmarshal(w.Body.Bytes(), &shelf)
	if len(shelf.Uploaded) != 1 || shelf.Uploaded[0].ID != "up1" {
		t.Errorf("uploaded = %+v", shelf.Uploaded)
	}
	if len(shelf.Bought) != 1 || shelf.Bought[0].ID != "b1" {
		t.Errorf("bought = %+v", shelf.Bought)
	}

	w = doJSON(t, router, http.MethodGet, "/users/notes", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing email status = %d", w.Code)
	}
}

func uploadForm(t *testing.T, router http.Handler, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("file content")); err != nil {
		t.Fatal(err)
	}
	_ = mw.WriteField("title", "Lecture 1")
	_ = mw.WriteField("description", "Intro")
	_ = mw.WriteField("userEmail", "up@x.com")
	_ = mw.WriteField("userName", "Uploader")
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUpload(t *testing.T) {
	_, pipe, router := testEnv(t, "")

	w := uploadForm(t, router, "lecture.pdf")
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp UploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Message != "File uploaded and summarized successfully" {
		t.Errorf("message = %q", resp.Message)
	}

	if pipe.got == nil {
		t.Fatal("pipeline not invoked")
	}
	if pipe.got.Filename != "lecture.pdf" || pipe.got.Title != "Lecture 1" || pipe.got.UserEmail != "up@x.com" {
		t.Errorf("request = %+v", pipe.got)
	}
}

func TestUploadErrors(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{apperr.ErrUnsupportedType, "Unsupported file type"},
		{apperr.ErrExtraction, "Error extracting file content"},
		{apperr.ErrSummarization, "Error summarizing file content"},
		{errors.New("boom"), "Error uploading file"},
	}
	for _, c := range cases {
		_, pipe, router := testEnv(t, "")
		pipe.err = c.err

		w := uploadForm(t, router, "lecture.pdf")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%v: status = %d", c.err, w.Code)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte(c.want)) {
			t.Errorf("%v: body = %s", c.err, w.Body.String())
		}
	}
}

func TestUploadStalledBody(t *testing.T) {
	dbFile, err := os.CreateTemp("", "gebo-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pipe := &fakePipeline{result: &upload.Result{NoteID: "n"}}
	h := NewHandler(db, market.New(db), ledger.New(db), pipe, nil)
	h.formTimeout = 200 * time.Millisecond
	srv := httptest.NewServer(NewRouter(h, false, "", nil))
	defer srv.Close()

	// Body never finishes, so the read deadline fires mid-parse.
	pr, pw := io.Pipe()
	defer pw.Close()
	go func() {
		_, _ = pw.Write([]byte("--frontier\r\n"))
	}()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/upload", pr)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "multipart/form-data; boundary=frontier")

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed instead of erroring in-band: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("Error parsing form data")) {
		t.Errorf("body = %s", body)
	}
	if pipe.got != nil {
		t.Error("pipeline invoked despite stalled form")
	}
}

func TestNoteDetail(t *testing.T) {
	db, _, router := testEnv(t, "")
	if err := db.InsertNote(models.Note{ID: "n1", Title: "T", UploaderEmail: "owner@x.com"}, ""); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodGet, "/notes/n1?email=owner@x.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var detail NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Role != market.RoleOwner {
		t.Errorf("role = %q", detail.Role)
	}

	w = doJSON(t, router, http.MethodGet, "/notes/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note status = %d", w.Code)
	}
}

func TestForumEndpoints(t *testing.T) {
	_, _, router := testEnv(t, "")
	signup(t, router, "Frank", "frank@x.com")

	// Create post.
	w := doJSON(t, router, http.MethodPost, "/forum", map[string]string{
		"title": "Hello", "content": "First post", "email": "frank@x.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create post status = %d, body = %s", w.Code, w.Body.String())
	}
	var createResp struct {
		Message string           `json:"message"`
		Post    models.ForumPost `json:"post"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &createResp)
	if createResp.Message != "Post created successfully" || createResp.Post.OwnerName != "Frank" {
		t.Errorf("response = %+v", createResp)
	}
	postID := createResp.Post.ID

	// Comment on it.
	w = doJSON(t, router, http.MethodPost, "/forum/comments", map[string]any{
		"postId": postID, "commenterEmail": "frank@x.com", "text": "Replying to myself",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add comment status = %d, body = %s", w.Code, w.Body.String())
	}

	// List includes it with the comment.
	w = doJSON(t, router, http.MethodGet, "/forum", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var posts []models.ForumPost
	_ = json.Unmarshal(w.Body.Bytes(), &posts)
	if len(posts) != 1 || len(posts[0].Comments) != 1 {
		t.Fatalf("posts = %+v", posts)
	}
	commentID := posts[0].Comments[0].ID

	// Delete the comment.
	w = doJSON(t, router, http.MethodDelete,
		"/forum/comments?postId="+itoa(postID)+"&commentId="+itoa(commentID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete comment status = %d, body = %s", w.Code, w.Body.String())
	}

	// Delete the post.
	w = doJSON(t, router, http.MethodDelete, "/forum/"+itoa(postID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete post status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/forum/"+itoa(postID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("deleted post status = %d", w.Code)
	}
}

func TestDownloadSummary(t *testing.T) {
	_, _, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/summary/download", map[string]string{"summary": "The summary."})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.wordprocessingml.document" {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename=Summary.docx" {
		t.Errorf("content disposition = %q", cd)
	}
	// Output is a zip container.
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip archive")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, _, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodDelete, "/users/points", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Method not allowed")) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, _, router := testEnv(t, "sekrit")

	// No token.
	w := doJSON(t, router, http.MethodGet, "/forum", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", w.Code)
	}

	// Wrong token.
	req := httptest.NewRequest(http.MethodGet, "/forum", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", rec.Code)
	}

	// Correct token.
	req = httptest.NewRequest(http.MethodGet, "/forum", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token status = %d", rec.Code)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
