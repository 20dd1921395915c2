package screen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/pkg/vision/cv"
)

// ImageToBase64 将图像编码为 data URL
// format: "png" 或 "jpeg"，默认 "jpeg"
// quality: JPEG 质量 1-100，默认 80
func ImageToBase64(img image.Image, format string, quality int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("图像为空")
	}
	if format == "" {
		format = "jpeg"
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	var buf bytes.Buffer
	var mimeType string
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("PNG 编码失败: %w", err)
		}
		mimeType = "image/png"
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", fmt.Errorf("JPEG 编码失败: %w", err)
		}
		mimeType = "image/jpeg"
	default:
		return "", fmt.Errorf("不支持的图像格式: %s", format)
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// MatToBase64 将 Mat 编码为 data URL
func MatToBase64(mat gocv.Mat, format string, quality int) (string, error) {
	if mat.Empty() {
		return "", fmt.Errorf("图像为空")
	}
	img, err := cv.MatToImage(mat)
	if err != nil {
		return "", err
	}
	return ImageToBase64(img, format, quality)
}
