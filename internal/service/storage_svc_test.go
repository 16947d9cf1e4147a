package service

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newLocalStorageService(t *testing.T) (*StorageService, string) {
	t.Helper()
	dir := t.TempDir()
	svc, err := NewStorageService(&StorageConfig{
		Provider: "local",
		BasePath: dir,
		Endpoint: "http://files.test/uploads",
	})
	if err != nil {
		t.Fatalf("NewStorageService() error = %v", err)
	}
	return svc, dir
}

// 收集目录下所有落盘文件（本地存储按日期分层）
func listSavedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("遍历存储目录失败: %v", err)
	}
	return files
}

func TestNewStorageProvider(t *testing.T) {
	provider, err := NewStorageProvider(&StorageConfig{Provider: "local", BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("本地存储初始化失败: %v", err)
	}
	if provider == nil {
		t.Fatal("provider 为空")
	}

	_, err = NewStorageProvider(&StorageConfig{Provider: "ftp"})
	if err == nil || !strings.Contains(err.Error(), "不支持的存储提供者") {
		t.Errorf("error = %v", err)
	}
}

func TestStorageService_SaveBase64(t *testing.T) {
	svc, dir := newLocalStorageService(t)
	raw := []byte("hello world")
	encoded := base64.StdEncoding.EncodeToString(raw)

	url, err := svc.SaveBase64(context.Background(), encoded, "seed/9001", "image/jpeg")
	if err != nil {
		t.Fatalf("SaveBase64() error = %v", err)
	}

	if !strings.HasPrefix(url, "http://files.test/uploads/") {
		t.Errorf("URL = %s", url)
	}
	if !strings.HasSuffix(url, ".jpg") {
		t.Errorf("URL = %s, 扩展名应按 MIME 推断为 jpg", url)
	}

	files := listSavedFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("落盘文件数 = %d, want 1", len(files))
	}
	content, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("读取落盘文件失败: %v", err)
	}
	if string(content) != string(raw) {
		t.Errorf("落盘内容 = %q, want %q", content, raw)
	}
}

func TestStorageService_SaveBase64_DataURL(t *testing.T) {
	svc, dir := newLocalStorageService(t)
	raw := []byte{0x89, 0x50, 0x4E, 0x47}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	url, err := svc.SaveBase64(context.Background(), dataURL, "generated/1/task_2", "image/png")
	if err != nil {
		t.Fatalf("SaveBase64() error = %v", err)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("URL = %s", url)
	}

	files := listSavedFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("落盘文件数 = %d", len(files))
	}
	content, _ := os.ReadFile(files[0])
	if string(content) != string(raw) {
		t.Error("data URL 前缀应被剥掉后再解码")
	}
}

func TestStorageService_SaveBase64_InvalidData(t *testing.T) {
	svc, _ := newLocalStorageService(t)

	_, err := svc.SaveBase64(context.Background(), "not-base64!!!", "seed/1", "image/png")
	if err == nil || !strings.Contains(err.Error(), "Base64 解码失败") {
		t.Errorf("error = %v", err)
	}
}

func TestStorageService_FetchBase64(t *testing.T) {
	raw := []byte("generated image bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(raw)
	}))
	defer server.Close()

	svc, _ := newLocalStorageService(t)

	encoded, contentType, err := svc.FetchBase64(context.Background(), server.URL+"/img.png")
	if err != nil {
		t.Fatalf("FetchBase64() error = %v", err)
	}
	if encoded != base64.StdEncoding.EncodeToString(raw) {
		t.Error("返回的 base64 与原始字节不一致")
	}
	if contentType != "image/png" {
		t.Errorf("contentType = %s", contentType)
	}
}

func TestStorageService_FetchBase64_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc, _ := newLocalStorageService(t)

	_, _, err := svc.FetchBase64(context.Background(), server.URL+"/missing.png")
	if err == nil || !strings.Contains(err.Error(), "下载图片失败") {
		t.Errorf("error = %v", err)
	}
}

func TestLocalStorage_DeleteRoundTrip(t *testing.T) {
	svc, dir := newLocalStorageService(t)

	url, err := svc.Upload(context.Background(), []byte("to be removed"), "tmp.png", "image/png")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if len(listSavedFiles(t, dir)) != 1 {
		t.Fatal("上传后应有一个文件")
	}

	if err := svc.Delete(context.Background(), url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(listSavedFiles(t, dir)) != 0 {
		t.Error("删除后不应残留文件")
	}

	// 不是本存储发出的 URL
	if err := svc.Delete(context.Background(), "https://elsewhere.example.com/a.png"); err == nil {
		t.Error("无法解析的 URL 应返回错误")
	}
}

func TestLocalStorage_GetSignedURL(t *testing.T) {
	svc, _ := newLocalStorageService(t)

	url := "http://files.test/uploads/2026/08/21/x.png"
	signed, err := svc.GetSignedURL(context.Background(), url, time.Hour)
	if err != nil {
		t.Fatalf("GetSignedURL() error = %v", err)
	}
	if signed != url {
		t.Errorf("本地存储签名 URL 应原样返回: %s", signed)
	}
}

func TestLocalStorage_UploadFromURL(t *testing.T) {
	raw := []byte("remote file body")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(raw)
	}))
	defer server.Close()

	svc, dir := newLocalStorageService(t)

	url, err := svc.UploadFromURL(context.Background(), server.URL+"/remote.png", "copy.png")
	if err != nil {
		t.Fatalf("UploadFromURL() error = %v", err)
	}
	if !strings.HasPrefix(url, "http://files.test/uploads/") {
		t.Errorf("URL = %s", url)
	}

	files := listSavedFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("落盘文件数 = %d", len(files))
	}
	content, _ := os.ReadFile(files[0])
	if string(content) != string(raw) {
		t.Error("转存内容与源不一致")
	}
}

// 对象键按日期分层，文件名随机化
func TestGenerateObjectKey(t *testing.T) {
	datePath := time.Now().Format("2006/01/02")

	key := generateObjectKey("covers", "photo.jpg")
	if !strings.HasPrefix(key, "covers/"+datePath+"/") {
		t.Errorf("key = %s", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("key = %s, 应保留原扩展名", key)
	}
	if strings.Contains(key, "photo") {
		t.Errorf("key = %s, 文件名应随机化", key)
	}

	key = generateObjectKey("", "noext")
	if !strings.HasSuffix(key, ".png") {
		t.Errorf("key = %s, 无扩展名时默认 png", key)
	}
	if !strings.HasPrefix(key, datePath+"/") {
		t.Errorf("key = %s, 无基础路径时直接日期开头", key)
	}

	if generateObjectKey("a", "b.png") == generateObjectKey("a", "b.png") {
		t.Error("两次生成的对象键不应相同")
	}
}
