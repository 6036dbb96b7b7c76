package model

import "errors"

// 格式错误：data URI 本身不合法
var (
	ErrInvalidImageFormat = errors.New("Invalid image format")
	ErrInvalidImageData   = errors.New("Invalid image data format")
	ErrImageTooSmall      = errors.New("Image data is too small or empty")
)
