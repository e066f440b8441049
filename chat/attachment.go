package chat

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"github.com/gabriel-vasile/mimetype"
)

// MaxAttachmentSize 单个附件的大小上限
const MaxAttachmentSize = 5 << 20

// FilePart reads a local file into a file part carrying a base64 data URL,
// the form the web client sends for uploads.
func FilePart(path string) (protocol.Part, error) {
	info, err := os.Stat(path)
	if err != nil {
		return protocol.Part{}, err
	}
	if info.IsDir() {
		return protocol.Part{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxAttachmentSize {
		return protocol.Part{}, fmt.Errorf("%s is larger than %d bytes", path, MaxAttachmentSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return protocol.Part{}, err
	}

	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mediaType == "" {
		mediaType = mimetype.Detect(data).String()
	}
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}

	return protocol.Part{
		Type:      protocol.PartFile,
		MediaType: mediaType,
		Filename:  filepath.Base(path),
		URL:       "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}
