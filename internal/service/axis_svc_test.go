package service

import (
	"testing"

	"pod_studio_v1_202608/pkg/shopify"
)

func TestResolveAxes(t *testing.T) {
	tests := []struct {
		name      string
		options   []shopify.ProductOption
		wantBG    bool
		wantSize  bool
		wantFrame bool
	}{
		{
			name: "标准命名",
			options: []shopify.ProductOption{
				{Name: "Background Color", Values: []string{"Red", "Blue"}},
				{Name: "Size", Values: []string{"12x16", "18x24"}},
				{Name: "Frame Color", Values: []string{"Black", "Poster Only"}},
			},
			wantBG:    true,
			wantSize:  true,
			wantFrame: true,
		},
		{
			name: "大小写与分隔符变体",
			options: []shopify.ProductOption{
				{Name: "BACKGROUND_COLOR", Values: []string{"Red"}},
				{Name: "SIZE", Values: []string{"A4"}},
				{Name: "frame-color", Values: []string{"White"}},
			},
			wantBG:    true,
			wantSize:  true,
			wantFrame: true,
		},
		{
			name: "无分隔符",
			options: []shopify.ProductOption{
				{Name: "backgroundcolor", Values: []string{"Red"}},
				{Name: "framecolor", Values: []string{"Oak"}},
			},
			wantBG:    true,
			wantFrame: true,
		},
		{
			name: "未识别选项被忽略",
			options: []shopify.ProductOption{
				{Name: "Background Color", Values: []string{"Red", "Blue"}},
				{Name: "Material", Values: []string{"Canvas"}},
			},
			wantBG: true,
		},
		{
			name: "相近但不匹配的名称",
			options: []shopify.ProductOption{
				{Name: "Frame", Values: []string{"Black"}},
				{Name: "Sizes", Values: []string{"A4"}},
				{Name: "Color", Values: []string{"Red"}},
			},
		},
		{
			name:    "空选项列表",
			options: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			axes := ResolveAxes(tt.options)

			if (axes.BackgroundColor != nil) != tt.wantBG {
				t.Errorf("BackgroundColor 识别 = %v, want %v", axes.BackgroundColor != nil, tt.wantBG)
			}
			if (axes.Size != nil) != tt.wantSize {
				t.Errorf("Size 识别 = %v, want %v", axes.Size != nil, tt.wantSize)
			}
			if (axes.FrameColor != nil) != tt.wantFrame {
				t.Errorf("FrameColor 识别 = %v, want %v", axes.FrameColor != nil, tt.wantFrame)
			}
		})
	}
}

func TestResolveAxes_DuplicateKindKeepsFirst(t *testing.T) {
	axes := ResolveAxes([]shopify.ProductOption{
		{Name: "Background Color", Values: []string{"Red"}},
		{Name: "background color", Values: []string{"Blue"}},
	})

	if axes.BackgroundColor == nil {
		t.Fatal("应识别出背景色轴")
	}
	if len(axes.BackgroundColor.Values) != 1 || axes.BackgroundColor.Values[0] != "Red" {
		t.Errorf("重复轴应保留先匹配者, got %v", axes.BackgroundColor.Values)
	}
}

func TestValidateHexCode(t *testing.T) {
	tests := []struct {
		hex  string
		want bool
	}{
		{"#0000ff", true},
		{"#ABCDEF", true},
		{"#a1B2c3", true},
		{"#abc", false},
		{"0000ff", false},
		{"#GGGGGG", false},
		{"#0000ff0", false},
		{"", false},
		{"#00 0ff", false},
	}

	for _, tt := range tests {
		if got := ValidateHexCode(tt.hex); got != tt.want {
			t.Errorf("ValidateHexCode(%q) = %v, want %v", tt.hex, got, tt.want)
		}
	}
}

func TestBuildColorPlan(t *testing.T) {
	bgAxis := &shopify.ProductOption{
		Name:   "Background Color",
		Values: []string{"Red", "Blue", "Green"},
	}
	sizeAxis := &shopify.ProductOption{Name: "Size", Values: []string{"12x16"}}
	validHex := map[string]string{"Red": "#ff0000", "Blue": "#0000ff", "Green": "#00ff00"}

	tests := []struct {
		name        string
		axes        ResolvedAxes
		seedColor   string
		hexCodes    map[string]string
		wantErr     bool
		wantNonSeed []string
		wantShared  bool
	}{
		{
			name:        "正常提交",
			axes:        ResolvedAxes{BackgroundColor: bgAxis, Size: sizeAxis},
			seedColor:   "Red",
			hexCodes:    validHex,
			wantNonSeed: []string{"Blue", "Green"},
			wantShared:  true,
		},
		{
			name:        "种子为中间取值时仍保持顺序",
			axes:        ResolvedAxes{BackgroundColor: bgAxis},
			seedColor:   "Blue",
			hexCodes:    validHex,
			wantNonSeed: []string{"Red", "Green"},
		},
		{
			name:      "缺少色号",
			axes:      ResolvedAxes{BackgroundColor: bgAxis},
			seedColor: "Red",
			hexCodes:  map[string]string{"Red": "#ff0000", "Blue": "#0000ff"},
			wantErr:   true,
		},
		{
			name:      "色号格式非法",
			axes:      ResolvedAxes{BackgroundColor: bgAxis},
			seedColor: "Red",
			hexCodes:  map[string]string{"Red": "#ff0000", "Blue": "blue", "Green": "#00ff00"},
			wantErr:   true,
		},
		{
			name:      "种子颜色不在轴中",
			axes:      ResolvedAxes{BackgroundColor: bgAxis},
			seedColor: "Purple",
			hexCodes:  validHex,
			wantErr:   true,
		},
		{
			name:     "未选择种子颜色",
			axes:     ResolvedAxes{BackgroundColor: bgAxis},
			hexCodes: validHex,
			wantErr:  true,
		},
		{
			name:       "无背景色轴时空方案直接通过",
			axes:       ResolvedAxes{Size: sizeAxis},
			wantShared: true,
		},
		{
			name:      "种子是唯一取值",
			axes:      ResolvedAxes{BackgroundColor: &shopify.ProductOption{Name: "Background Color", Values: []string{"Red"}}},
			seedColor: "Red",
			hexCodes:  map[string]string{"Red": "#ff0000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := BuildColorPlan(tt.axes, tt.seedColor, tt.hexCodes)

			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildColorPlan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if len(plan.NonSeedColors) != len(tt.wantNonSeed) {
				t.Fatalf("NonSeedColors = %v, want %v", plan.NonSeedColors, tt.wantNonSeed)
			}
			for i, c := range tt.wantNonSeed {
				if plan.NonSeedColors[i] != c {
					t.Errorf("NonSeedColors[%d] = %s, want %s", i, plan.NonSeedColors[i], c)
				}
			}
			if plan.SizeShared != tt.wantShared {
				t.Errorf("SizeShared = %v, want %v", plan.SizeShared, tt.wantShared)
			}
		})
	}
}
