package ptt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/pttman/internal/model"
)

//go:embed boards.yaml
var defaultBoardsYAML []byte

// Directory は熱門看板の一覧と、存在確認失敗時に使う看板許可リストを保持する。
// 生成後は変更しない。
type Directory struct {
	popular  []model.Board
	fallback map[string]struct{}
}

type directoryFile struct {
	Popular  []model.Board `yaml:"popular"`
	Fallback []string      `yaml:"fallback"`
}

// DefaultDirectory は組み込みの看板ディレクトリを返す。
func DefaultDirectory() *Directory {
	d, err := ParseDirectory(defaultBoardsYAML)
	if err != nil {
		panic(fmt.Sprintf("組み込み boards.yaml が不正です: %v", err))
	}
	return d
}

// LoadDirectory はYAMLファイルから看板ディレクトリを読み込む。
// pathが空の場合は組み込みのディレクトリを返す。
func LoadDirectory(path string) (*Directory, error) {
	if path == "" {
		return DefaultDirectory(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("看板ファイルの読み込みに失敗: %w", err)
	}
	return ParseDirectory(data)
}

// ParseDirectory はYAMLバイト列から看板ディレクトリを生成する。
// 看板名が空のエントリはエラーとする。
func ParseDirectory(data []byte) (*Directory, error) {
	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("看板ファイルのパースに失敗: %w", err)
	}

	d := &Directory{fallback: make(map[string]struct{}, len(f.Fallback))}
	for _, b := range f.Popular {
		b.Name = strings.TrimSpace(b.Name)
		if b.Name == "" {
			return nil, fmt.Errorf("看板名が空のエントリがあります")
		}
		d.popular = append(d.popular, b)
	}
	for _, name := range f.Fallback {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("許可リストに空の看板名があります")
		}
		d.fallback[name] = struct{}{}
	}
	return d, nil
}

// Popular は熱門看板の一覧を返す。
func (d *Directory) Popular() []model.Board {
	out := make([]model.Board, len(d.popular))
	copy(out, d.popular)
	return out
}

// InFallback は看板が許可リストに含まれるかを返す。大文字小文字は区別する。
func (d *Directory) InFallback(board string) bool {
	_, ok := d.fallback[board]
	return ok
}
