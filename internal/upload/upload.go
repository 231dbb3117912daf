// Package upload validates user-supplied images and stores them under
// generated names, either on the local filesystem or in an S3 bucket.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

var (
	// ErrRejected is wrapped by every validation failure.
	ErrRejected = errors.New("upload rejected")

	ErrEmpty       = rejected("file is empty")
	ErrTooLarge    = rejected("file exceeds the size limit")
	ErrExtension   = rejected("file extension is not an allowed image type")
	ErrContentType = rejected("declared content type is not an allowed image type")
	ErrSignature   = rejected("file content does not match a known image signature")

	// ErrStorage is wrapped by every failure to persist an accepted file.
	ErrStorage = errors.New("upload storage failure")

	// ErrNoStorage is returned when the storage backend has no root configured.
	ErrNoStorage = fmt.Errorf("%w: no storage root configured", ErrStorage)

	// ErrAssetNotFound is returned when deleting a path with no file behind it.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrUnresolvable is returned when a path cannot be mapped onto any storage root.
	ErrUnresolvable = errors.New("asset path cannot be resolved")
)

func rejected(reason string) error {
	return fmt.Errorf("%w: %s", ErrRejected, reason)
}

// File describes an incoming file. Open may be called more than once; each
// call returns a stream positioned at the start.
type File struct {
	Name        string
	ContentType string
	Size        int64

	open func() (io.ReadSeekCloser, error)
}

// Open returns a fresh stream over the file's bytes.
func (f *File) Open() (io.ReadSeekCloser, error) {
	if f.open == nil {
		return nil, errors.New("upload: file has no content")
	}
	return f.open()
}

// FromMultipart wraps a form upload. A nil header yields a nil File, which
// callers treat as "no file supplied".
func FromMultipart(fh *multipart.FileHeader) *File {
	if fh == nil {
		return nil
	}
	return &File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		open: func() (io.ReadSeekCloser, error) {
			return fh.Open()
		},
	}
}

// FromBytes wraps an in-memory file.
func FromBytes(name, contentType string, data []byte) *File {
	return &File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		open: func() (io.ReadSeekCloser, error) {
			return nopCloser{bytes.NewReader(data)}, nil
		},
	}
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
