// 包 avatar 将本地图片转换为可内嵌到配置中的 data URI。
package avatar

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxSize 为头像文件的大小上限（2MB）。
const MaxSize = 2 << 20

var (
	ErrNotImage = errors.New("avatar must be an image file")
	ErrTooLarge = errors.New("avatar exceeds 2MB")
)

// Encode 读取 r 的全部内容并返回 data URI；类型按内容识别，而非扩展名。
func Encode(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	if len(b) > MaxSize {
		return "", ErrTooLarge
	}
	mt := mimetype.Detect(b)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	// 去掉参数部分，如 "image/svg+xml; charset=utf-8"
	typ, _, _ := strings.Cut(mt.String(), ";")
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

// FromFile 读取本地文件并编码为 data URI。
func FromFile(path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Size() > MaxSize {
		return "", ErrTooLarge
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Encode(f)
}
