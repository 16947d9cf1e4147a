package service

import (
	"fmt"
	"regexp"

	"pod_studio_v1_202608/pkg/shopify"
)

// ==================== 轴识别 ====================

// 选项名匹配规则，大小写不敏感，分隔符可省略
var (
	backgroundColorPattern = regexp.MustCompile(`(?i)^background[ _-]?color$`)
	sizePattern            = regexp.MustCompile(`(?i)^size$`)
	frameColorPattern      = regexp.MustCompile(`(?i)^frame[ _-]?color$`)
	hexCodePattern         = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// ResolvedAxes 商品选项轴识别结果，未识别出的轴为 nil
type ResolvedAxes struct {
	BackgroundColor *shopify.ProductOption
	Size            *shopify.ProductOption
	FrameColor      *shopify.ProductOption
}

// ResolveAxes 将商品选项按名称规则归类为背景色/尺寸/画框色三类轴。
// 每类至多保留一个（先匹配者优先），其余选项忽略。
func ResolveAxes(options []shopify.ProductOption) ResolvedAxes {
	var axes ResolvedAxes
	for i := range options {
		opt := options[i]
		switch {
		case backgroundColorPattern.MatchString(opt.Name):
			if axes.BackgroundColor == nil {
				axes.BackgroundColor = &opt
			}
		case sizePattern.MatchString(opt.Name):
			if axes.Size == nil {
				axes.Size = &opt
			}
		case frameColorPattern.MatchString(opt.Name):
			if axes.FrameColor == nil {
				axes.FrameColor = &opt
			}
		}
	}
	return axes
}

// ValidateHexCode 校验 #RRGGBB 格式色号
func ValidateHexCode(hex string) bool {
	return hexCodePattern.MatchString(hex)
}

// ==================== 颜色方案 ====================

// ColorPlan 操作员确认后的颜色方案。
// 提交后不可变，后续生成与 Mockup 数量完全由 NonSeedColors 决定。
type ColorPlan struct {
	SeedColor     string
	NonSeedColors []string
	HexCodes      map[string]string
	SizeShared    bool
}

// BuildColorPlan 校验色号与种子选择并生成颜色方案。
// 无背景色轴时方案为空方案（无需生成任何图片）。
func BuildColorPlan(axes ResolvedAxes, seedColor string, hexCodes map[string]string) (*ColorPlan, error) {
	plan := &ColorPlan{
		HexCodes:   map[string]string{},
		SizeShared: axes.Size != nil,
	}

	if axes.BackgroundColor == nil {
		return plan, nil
	}

	if seedColor == "" {
		return nil, fmt.Errorf("未选择种子颜色")
	}

	seedFound := false
	for _, v := range axes.BackgroundColor.Values {
		if v == seedColor {
			seedFound = true
			break
		}
	}
	if !seedFound {
		return nil, fmt.Errorf("种子颜色 %s 不在背景色轴取值中", seedColor)
	}

	for _, v := range axes.BackgroundColor.Values {
		hex, ok := hexCodes[v]
		if !ok || !ValidateHexCode(hex) {
			return nil, fmt.Errorf("颜色 %s 缺少有效的 #RRGGBB 色号", v)
		}
		plan.HexCodes[v] = hex
	}

	plan.SeedColor = seedColor
	// 保持轴取值顺序
	for _, v := range axes.BackgroundColor.Values {
		if v != seedColor {
			plan.NonSeedColors = append(plan.NonSeedColors, v)
		}
	}

	return plan, nil
}
