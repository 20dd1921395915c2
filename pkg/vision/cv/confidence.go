package cv

import (
	"image"

	"gocv.io/x/gocv"
)

// SSIM 常数，对应 8 位图像 (0.01*255)^2 与 (0.03*255)^2
const (
	ssimC1 = 6.5025
	ssimC2 = 58.5225
)

// SSIM 计算两张同尺寸图像的结构相似度，取值越接近 1 越相似
//
// 彩色图像先转为灰度。尺寸不一致时返回 ImageSizeError。
func SSIM(a, b gocv.Mat) (float64, error) {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return 0, &ImageSizeError{
			SourceSize: [2]int{a.Cols(), a.Rows()},
			SearchSize: [2]int{b.Cols(), b.Rows()},
		}
	}

	i1 := toFloatGray(a)
	defer i1.Close()
	i2 := toFloatGray(b)
	defer i2.Close()

	mats := make([]gocv.Mat, 0, 16)
	newMat := func() gocv.Mat {
		m := gocv.NewMat()
		mats = append(mats, m)
		return m
	}
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()
	blur := func(src gocv.Mat) gocv.Mat {
		dst := newMat()
		gocv.GaussianBlur(src, &dst, image.Point{X: 11, Y: 11}, 1.5, 0, gocv.BorderDefault)
		return dst
	}
	mul := func(x, y gocv.Mat) gocv.Mat {
		dst := newMat()
		gocv.Multiply(x, y, &dst)
		return dst
	}
	sub := func(x, y gocv.Mat) gocv.Mat {
		dst := newMat()
		gocv.Subtract(x, y, &dst)
		return dst
	}
	add := func(x, y gocv.Mat) gocv.Mat {
		dst := newMat()
		gocv.Add(x, y, &dst)
		return dst
	}

	mu1, mu2 := blur(i1), blur(i2)
	mu1Sq, mu2Sq, mu1mu2 := mul(mu1, mu1), mul(mu2, mu2), mul(mu1, mu2)

	sigma1Sq := sub(blur(mul(i1, i1)), mu1Sq)
	sigma2Sq := sub(blur(mul(i2, i2)), mu2Sq)
	sigma12 := sub(blur(mul(i1, i2)), mu1mu2)

	// (2μ1μ2 + C1)(2σ12 + C2)
	t1 := mu1mu2.Clone()
	mats = append(mats, t1)
	t1.MultiplyFloat(2)
	t1.AddFloat(ssimC1)
	t2 := sigma12.Clone()
	mats = append(mats, t2)
	t2.MultiplyFloat(2)
	t2.AddFloat(ssimC2)
	num := mul(t1, t2)

	// (μ1² + μ2² + C1)(σ1² + σ2² + C2)
	d1 := add(mu1Sq, mu2Sq)
	d1.AddFloat(ssimC1)
	d2 := add(sigma1Sq, sigma2Sq)
	d2.AddFloat(ssimC2)
	den := mul(d1, d2)

	ssimMap := newMat()
	gocv.Divide(num, den, &ssimMap)
	return ssimMap.Mean().Val1, nil
}

func toFloatGray(src gocv.Mat) gocv.Mat {
	gray := ToGray(src)
	defer gray.Close()
	dst := gocv.NewMat()
	gray.ConvertTo(&dst, gocv.MatTypeCV32F)
	return dst
}
