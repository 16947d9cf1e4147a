package service

import (
	"testing"

	"pod_studio_v1_202608/internal/model"
	"pod_studio_v1_202608/pkg/printify"
	"pod_studio_v1_202608/pkg/shopify"
)

func TestNormalizeFrameKey(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		eq   bool
	}{
		{"连字符与空格等价", "Poster-Only", "Poster Only", true},
		{"大小写等价", "BLACK", "black", true},
		{"混合等价", "Poster-Only", "posteronly", true},
		{"不做前缀匹配", "Poster", "PosterOnly", false},
		{"不同画框不等", "Black", "White", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeFrameKey(tt.a) == NormalizeFrameKey(tt.b)
			if got != tt.eq {
				t.Errorf("NormalizeFrameKey(%q) == NormalizeFrameKey(%q) = %v, want %v", tt.a, tt.b, got, tt.eq)
			}
		})
	}
}

func TestAllGenerationDone(t *testing.T) {
	tests := []struct {
		name  string
		tasks []model.GenerationTask
		want  bool
	}{
		{
			name: "全部完成",
			tasks: []model.GenerationTask{
				{State: model.GenStateDone},
				{State: model.GenStateDone},
			},
			want: true,
		},
		{
			name: "单个失败即阻塞",
			tasks: []model.GenerationTask{
				{State: model.GenStateDone},
				{State: model.GenStateError},
				{State: model.GenStateDone},
			},
			want: false,
		},
		{
			name: "仍在生成中",
			tasks: []model.GenerationTask{
				{State: model.GenStateDone},
				{State: model.GenStateGenerating},
			},
			want: false,
		},
		{
			name: "等待中",
			tasks: []model.GenerationTask{
				{State: model.GenStatePending},
			},
			want: false,
		},
		{
			name:  "无任务时视为完成",
			tasks: nil,
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllGenerationDone(tt.tasks); got != tt.want {
				t.Errorf("AllGenerationDone() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllMockupsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		products []model.MockupProduct
		want     bool
	}{
		{
			name: "全部成功",
			products: []model.MockupProduct{
				{State: model.MockupStateDone},
				{State: model.MockupStateDone},
			},
			want: true,
		},
		{
			name: "成功与失败混合也算终态",
			products: []model.MockupProduct{
				{State: model.MockupStateDone},
				{State: model.MockupStateError},
			},
			want: true,
		},
		{
			name: "全部失败也算终态",
			products: []model.MockupProduct{
				{State: model.MockupStateError},
				{State: model.MockupStateError},
			},
			want: true,
		},
		{
			name: "仍在上传",
			products: []model.MockupProduct{
				{State: model.MockupStateDone},
				{State: model.MockupStateUploading},
			},
			want: false,
		},
		{
			name: "仍在建品",
			products: []model.MockupProduct{
				{State: model.MockupStateCreating},
			},
			want: false,
		},
		{
			name:     "无产品时视为完成",
			products: nil,
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllMockupsTerminal(tt.products); got != tt.want {
				t.Errorf("AllMockupsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildPositionGroups(t *testing.T) {
	products := []model.MockupProduct{
		{ID: 1, Color: "Blue", State: model.MockupStateDone},
		{ID: 2, Color: "Green", State: model.MockupStateError},
		{ID: 3, Color: "Black", State: model.MockupStateDone},
	}
	images := []model.MockupImage{
		{MockupProductID: 1, PositionIndex: 0, Src: "blue-front.png"},
		{MockupProductID: 1, PositionIndex: 1, Src: "blue-side.png"},
		{MockupProductID: 2, PositionIndex: 0, Src: "green-front.png"},
		{MockupProductID: 3, PositionIndex: 0, Src: "black-front.png"},
		{MockupProductID: 3, PositionIndex: 3, Src: "black-extra.png"},
	}

	groups := BuildPositionGroups(products, images)

	// 机位 0、1、3 有图，机位 2 空缺被省略
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}

	if groups[0].PositionIndex != 0 || groups[0].Label != "正面" {
		t.Errorf("groups[0] = {%d %s}, want {0 正面}", groups[0].PositionIndex, groups[0].Label)
	}
	// 失败颜色的图片被排除
	if len(groups[0].Images) != 2 {
		t.Fatalf("机位 0 图片数 = %d, want 2（Green 失败被排除）", len(groups[0].Images))
	}
	for _, img := range groups[0].Images {
		if img.Src == "green-front.png" {
			t.Error("失败颜色的图片不应进入分组")
		}
	}

	if groups[1].PositionIndex != 1 || groups[1].Label != "侧面" {
		t.Errorf("groups[1] = {%d %s}, want {1 侧面}", groups[1].PositionIndex, groups[1].Label)
	}

	// 超出前三个机位使用序号命名
	if groups[2].PositionIndex != 3 || groups[2].Label != "位置 4" {
		t.Errorf("groups[2] = {%d %s}, want {3 位置 4}", groups[2].PositionIndex, groups[2].Label)
	}
}

func TestBuildPositionGroups_NoDoneProducts(t *testing.T) {
	products := []model.MockupProduct{
		{ID: 1, State: model.MockupStateError},
	}
	images := []model.MockupImage{
		{MockupProductID: 1, PositionIndex: 0, Src: "a.png"},
	}

	groups := BuildPositionGroups(products, images)
	if len(groups) != 0 {
		t.Errorf("len(groups) = %d, want 0", len(groups))
	}
}

func TestBulkToggleTarget(t *testing.T) {
	tests := []struct {
		name   string
		images []model.MockupImage
		want   bool
	}{
		{
			name: "全部已选则取消全选",
			images: []model.MockupImage{
				{Selected: true},
				{Selected: true},
			},
			want: false,
		},
		{
			name: "部分已选则全选",
			images: []model.MockupImage{
				{Selected: true},
				{Selected: false},
			},
			want: true,
		},
		{
			name: "全部未选则全选",
			images: []model.MockupImage{
				{Selected: false},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BulkToggleTarget(tt.images); got != tt.want {
				t.Errorf("BulkToggleTarget() = %v, want %v", got, tt.want)
			}
		})
	}
}

// 匹配测试共用的目录商品：背景色 × 画框双轴
func matcherTestCatalog() *shopify.Product {
	return &shopify.Product{
		ID:    9001,
		Title: "Custom Pet Poster",
		Options: []shopify.ProductOption{
			{Name: "Background Color", Values: []string{"Red", "Blue", "Green"}},
			{Name: "Frame Color", Values: []string{"Black", "Poster Only"}},
		},
		Variants: []shopify.Variant{
			{ID: 11, Title: "Red / Black", SelectedOptions: []shopify.SelectedOption{{Name: "Background Color", Value: "Red"}, {Name: "Frame Color", Value: "Black"}}},
			{ID: 12, Title: "Red / Poster Only", SelectedOptions: []shopify.SelectedOption{{Name: "Background Color", Value: "Red"}, {Name: "Frame Color", Value: "Poster Only"}}},
			{ID: 21, Title: "Blue / Black", SelectedOptions: []shopify.SelectedOption{{Name: "Background Color", Value: "Blue"}, {Name: "Frame Color", Value: "Black"}}},
			{ID: 22, Title: "Blue / Poster Only", SelectedOptions: []shopify.SelectedOption{{Name: "Background Color", Value: "Blue"}, {Name: "Frame Color", Value: "Poster Only"}}},
			{ID: 31, Title: "Green / Black", SelectedOptions: []shopify.SelectedOption{{Name: "Background Color", Value: "Green"}, {Name: "Frame Color", Value: "Black"}}},
		},
	}
}

// 模板变体标题与目录画框命名格式不同（连字符 vs 空格）
func matcherTestTemplate() *printify.TemplateProduct {
	return &printify.TemplateProduct{
		ID:    "tpl_1",
		Title: "Poster Template",
		Variants: []printify.TemplateVariant{
			{ID: 101, Title: "Black"},
			{ID: 102, Title: "Poster-Only"},
		},
		Images: []printify.ProductImage{
			{Src: "tpl-black.png", VariantIDs: []int64{101}},
			{Src: "tpl-poster.png", VariantIDs: []int64{102}},
			{Src: "tpl-scene.png", VariantIDs: nil},
		},
	}
}

func TestBuildMappingRows(t *testing.T) {
	catalog := matcherTestCatalog()
	axes := ResolveAxes(catalog.Options)
	template := matcherTestTemplate()

	selected := []SelectedMockup{
		{Color: "Blue", Src: "blue-black.png", FrameKeys: []string{"black"}},
		{Color: "Blue", Src: "blue-any.png"},
	}

	rows := BuildMappingRows(catalog, axes, "Red", template, selected)
	if len(rows) != 5 {
		t.Fatalf("len(rows) = %d, want 5", len(rows))
	}

	byVariant := make(map[int64]MappingRow)
	for _, row := range rows {
		byVariant[row.VariantID] = row
	}

	// 种子变体：模板自带图按画框过滤，未限定画框的场景图全量匹配
	redBlack := byVariant[11]
	if !redBlack.IsSeed {
		t.Error("Red / Black 应为种子变体")
	}
	wantSrcs(t, "Red/Black", redBlack.MockupSrcs, []string{"tpl-black.png", "tpl-scene.png"})

	// 归一化匹配："Poster Only"（目录）== "Poster-Only"（模板）
	redPoster := byVariant[12]
	wantSrcs(t, "Red/Poster Only", redPoster.MockupSrcs, []string{"tpl-poster.png", "tpl-scene.png"})

	// 非种子变体：只从操作员选中的 Mockup 里按颜色与画框过滤
	blueBlack := byVariant[21]
	if blueBlack.IsSeed {
		t.Error("Blue / Black 不应为种子变体")
	}
	wantSrcs(t, "Blue/Black", blueBlack.MockupSrcs, []string{"blue-black.png", "blue-any.png"})

	bluePoster := byVariant[22]
	wantSrcs(t, "Blue/Poster Only", bluePoster.MockupSrcs, []string{"blue-any.png"})

	// 无人选中 Green 的 Mockup：零匹配合法
	greenBlack := byVariant[31]
	if len(greenBlack.MockupSrcs) != 0 {
		t.Errorf("Green/Black 应零匹配, got %v", greenBlack.MockupSrcs)
	}
}

func TestBuildMappingRows_NoFrameAxis(t *testing.T) {
	catalog := &shopify.Product{
		ID: 9002,
		Options: []shopify.ProductOption{
			{Name: "Background Color", Values: []string{"Red", "Blue"}},
		},
		Variants: []shopify.Variant{
			{ID: 1, Title: "Red", SelectedOptions: []shopify.SelectedOption{{Name: "Background Color", Value: "Red"}}},
			{ID: 2, Title: "Blue", SelectedOptions: []shopify.SelectedOption{{Name: "Background Color", Value: "Blue"}}},
		},
	}
	axes := ResolveAxes(catalog.Options)
	template := matcherTestTemplate()

	selected := []SelectedMockup{
		{Color: "Blue", Src: "blue-black.png", FrameKeys: []string{"black"}},
	}

	rows := BuildMappingRows(catalog, axes, "Red", template, selected)

	// 无画框轴时不做画框过滤：种子变体匹配全部模板图
	wantSrcs(t, "Red", rows[0].MockupSrcs, []string{"tpl-black.png", "tpl-poster.png", "tpl-scene.png"})
	wantSrcs(t, "Blue", rows[1].MockupSrcs, []string{"blue-black.png"})
}

func wantSrcs(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s 匹配结果 = %v, want %v", label, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s 匹配结果[%d] = %s, want %s", label, i, got[i], want[i])
		}
	}
}

func TestBuildAssignments_Dedup(t *testing.T) {
	rows := []MappingRow{
		{VariantID: 1, VariantTitle: "V1", MockupSrcs: []string{"a"}},
		{VariantID: 2, VariantTitle: "V2", MockupSrcs: []string{"a"}},
		{VariantID: 3, VariantTitle: "V3", MockupSrcs: []string{"b"}},
	}

	assignments, unmapped := BuildAssignments(rows)

	// 同一图片源只产生一条指派：两条而不是三条
	if len(assignments) != 2 {
		t.Fatalf("len(assignments) = %d, want 2", len(assignments))
	}
	if assignments[0].ImageURL != "a" {
		t.Errorf("assignments[0].ImageURL = %s, want a", assignments[0].ImageURL)
	}
	if len(assignments[0].VariantIDs) != 2 || assignments[0].VariantIDs[0] != 1 || assignments[0].VariantIDs[1] != 2 {
		t.Errorf("assignments[0].VariantIDs = %v, want [1 2]", assignments[0].VariantIDs)
	}
	if assignments[1].ImageURL != "b" || len(assignments[1].VariantIDs) != 1 || assignments[1].VariantIDs[0] != 3 {
		t.Errorf("assignments[1] = %+v, want {b [3]}", assignments[1])
	}
	if len(unmapped) != 0 {
		t.Errorf("unmapped = %v, want 空", unmapped)
	}
}

func TestBuildAssignments_Unmapped(t *testing.T) {
	rows := []MappingRow{
		{VariantID: 1, VariantTitle: "Blue / Black", MockupSrcs: []string{"a"}},
		{VariantID: 2, VariantTitle: "Green / Black"},
		{VariantID: 3, VariantTitle: "Green / Poster Only"},
	}

	assignments, unmapped := BuildAssignments(rows)

	if len(assignments) != 1 {
		t.Fatalf("len(assignments) = %d, want 1", len(assignments))
	}
	if len(unmapped) != 2 {
		t.Fatalf("len(unmapped) = %d, want 2", len(unmapped))
	}
	if unmapped[0] != "Green / Black" || unmapped[1] != "Green / Poster Only" {
		t.Errorf("unmapped = %v", unmapped)
	}
}

// 端到端匹配场景：种子 Red，非种子 Blue/Green，
// 操作员全选 Blue 的 Mockup、没选 Green 的任何 Mockup。
func TestMatching_EndToEndScenario(t *testing.T) {
	catalog := matcherTestCatalog()
	axes := ResolveAxes(catalog.Options)
	template := matcherTestTemplate()

	selected := []SelectedMockup{
		{Color: "Blue", Src: "blue-front.png", FrameKeys: []string{"black"}},
		{Color: "Blue", Src: "blue-side.png", FrameKeys: []string{"posteronly"}},
	}

	rows := BuildMappingRows(catalog, axes, "Red", template, selected)
	assignments, unmapped := BuildAssignments(rows)

	srcs := make(map[string]bool)
	for _, a := range assignments {
		srcs[a.ImageURL] = true
	}

	// 指派只含 Blue 的选中图与种子模板图
	for _, want := range []string{"blue-front.png", "blue-side.png", "tpl-black.png", "tpl-poster.png", "tpl-scene.png"} {
		if !srcs[want] {
			t.Errorf("指派缺少 %s", want)
		}
	}
	for src := range srcs {
		if src == "green-front.png" {
			t.Error("Green 未被选中，不应出现在指派中")
		}
	}

	// Green 变体零匹配并被汇报
	if len(unmapped) != 1 || unmapped[0] != "Green / Black" {
		t.Errorf("unmapped = %v, want [Green / Black]", unmapped)
	}
}
