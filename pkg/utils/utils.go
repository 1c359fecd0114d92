package utils

import (
	"crypto/rand"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
)

var (
	ErrNoFile        = errors.New("no file uploaded")
	ErrEmptyFile     = errors.New("uploaded file is empty")
	ErrFileTooLarge  = errors.New("file size exceeds limit")
	ErrNotAnImage    = errors.New("uploaded file is not an image")
	defaultMaxSizeMB = 10
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadImageFile(file *multipart.FileHeader) ([]byte, error)
	SniffImage(data []byte) error
}

type utils struct {
	maxFileSize int64
}

func New() IUtils {
	sizeMB, err := strconv.Atoi(os.Getenv("UPLOAD_MAX_SIZE_MB"))
	if err != nil || sizeMB <= 0 {
		sizeMB = defaultMaxSizeMB
	}

	return &utils{
		maxFileSize: int64(sizeMB) * 1024 * 1024,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size == 0 {
		return ErrEmptyFile
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	return nil
}

// ReadImageFile validates the upload header and returns its bytes. Content
// is not sniffed here; the decoder is the authority on whether the bytes
// are an image.
func (u *utils) ReadImageFile(file *multipart.FileHeader) ([]byte, error) {
	if err := u.ValidateImageFile(file); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return io.ReadAll(io.LimitReader(src, u.maxFileSize))
}

// SniffImage rejects payloads whose magic bytes are clearly not an image,
// e.g. a text file posted by mistake.
func (u *utils) SniffImage(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyFile
	}
	if int64(len(data)) > u.maxFileSize {
		return ErrFileTooLarge
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return ErrNotAnImage
	}

	return nil
}
