// Package cv 提供带透明度的模板搜索
//
// 模板以 PNG 读取并保留 alpha 通道，alpha 复制为三通道掩码参与
// TM_SQDIFF_NORMED 匹配。置信度越小越好，0 表示完全一致。
//
// 基本用法:
//
//	// 在屏幕矩形内查找模板，返回屏幕坐标
//	rect, err := cv.FindTemplate("img/bank/deposit.png", gameView, capturer)
//	if err != nil {
//	    return err
//	}
//	if rect != nil {
//	    fmt.Printf("找到位置: %s\n", rect)
//	}
//
//	// 放宽阈值并重试
//	rect, err := cv.FindTemplate(path, gameView, capturer,
//	    cv.WithConfidence(0.1),
//	    cv.WithRetries(3),
//	)
package cv
