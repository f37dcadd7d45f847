// internal/storage/file_storage.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStorage 把导出文件写到基础目录下
//
// 会话状态本身不落盘，这里只保存用户主动导出的时间线文件。
type FileStorage struct {
	BaseDir string

	fileLocks sync.Map // path -> *sync.RWMutex
}

// NewFileStorage 创建文件存储服务
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}

	return &FileStorage{BaseDir: baseDir}, nil
}

func (fs *FileStorage) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := fs.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

// resolve 拼接路径并拒绝跳出基础目录的相对路径
func (fs *FileStorage) resolve(dirPath, filename string) (string, string, error) {
	fullDirPath := filepath.Join(fs.BaseDir, dirPath)
	fullPath := filepath.Join(fullDirPath, filename)

	rel, err := filepath.Rel(fs.BaseDir, fullPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", "", fmt.Errorf("非法的文件路径: %s/%s", dirPath, filename)
	}
	return fullDirPath, fullPath, nil
}

// SaveTextFile 原子写入文本文件，返回完整路径
func (fs *FileStorage) SaveTextFile(dirPath, filename string, content []byte) (string, error) {
	fullDirPath, fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return "", err
	}

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(fullDirPath, 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return "", fmt.Errorf("保存临时文件失败: %w", err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			fmt.Printf("Warning: failed to clean up temporary file %s after rename failure: %v\n", tempPath, removeErr)
		}
		return "", fmt.Errorf("保存文件失败: %w", err)
	}

	return fullPath, nil
}

// SaveJSONFile 保存JSON文件
func (fs *FileStorage) SaveJSONFile(dirPath, filename string, data interface{}) (string, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}
	return fs.SaveTextFile(dirPath, filename, content)
}

// SaveYAMLFile 保存YAML文件
func (fs *FileStorage) SaveYAMLFile(dirPath, filename string, data interface{}) (string, error) {
	content, err := yaml.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("序列化YAML失败: %w", err)
	}
	return fs.SaveTextFile(dirPath, filename, content)
}

// LoadTextFile 读取文本文件
func (fs *FileStorage) LoadTextFile(dirPath, filename string) ([]byte, error) {
	_, fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return nil, err
	}

	lock := fs.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return content, nil
}

// LoadYAMLFile 读取并解析YAML文件
func (fs *FileStorage) LoadYAMLFile(dirPath, filename string, v interface{}) error {
	content, err := fs.LoadTextFile(dirPath, filename)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(content, v); err != nil {
		return fmt.Errorf("解析YAML失败: %w", err)
	}
	return nil
}

// FileExists 检查文件是否存在
func (fs *FileStorage) FileExists(dirPath, filename string) bool {
	_, fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

// ListFiles 按文件名排序列出目录下的文件
func (fs *FileStorage) ListFiles(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(fs.BaseDir, dirPath))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}
