package service

import (
	"fmt"
	"strings"

	"pod_studio_v1_202608/internal/model"
	"pod_studio_v1_202608/pkg/printify"
	"pod_studio_v1_202608/pkg/shopify"
)

// ==================== 画框标识归一化 ====================

// NormalizeFrameKey 归一化画框标识：小写并去掉连字符与空格。
// 等价类示例: "Poster-Only" == "Poster Only" == "posteronly"，
// 但 "Poster" != "PosterOnly"（不做前缀匹配）。
func NormalizeFrameKey(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// TemplateFrameIndex 模板变体 ID 到归一化画框标识的映射
func TemplateFrameIndex(template *printify.TemplateProduct) map[int64]string {
	index := make(map[int64]string, len(template.Variants))
	for _, v := range template.Variants {
		index[v.ID] = NormalizeFrameKey(v.Title)
	}
	return index
}

// ImageFrameKeys 根据图片关联的模板变体计算其画框标识集合。
// 未关联任何变体的图片不限定画框（返回空集合）。
func ImageFrameKeys(variantIDs []int64, frameIndex map[int64]string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, id := range variantIDs {
		key, ok := frameIndex[id]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// ==================== 完成判定 ====================

// AllGenerationDone 生成阶段完成判定：所有任务必须为 done，
// 任何一个 error 都会阻塞推进（缺图的颜色无法产出 Mockup）。
func AllGenerationDone(tasks []model.GenerationTask) bool {
	for i := range tasks {
		if tasks[i].State != model.GenStateDone {
			return false
		}
	}
	return true
}

// AllMockupsTerminal Mockup 阶段完成判定：所有颜色到达终态即可
// （done 或 error 均算），失败颜色在后续分组与匹配中被排除。
func AllMockupsTerminal(products []model.MockupProduct) bool {
	for i := range products {
		if !products[i].IsTerminal() {
			return false
		}
	}
	return true
}

// ==================== 位置分组 ====================

// 前三个机位的展示名，超出部分用序号
var positionLabels = []string{"正面", "侧面", "场景"}

// PositionGroup 同一机位下所有颜色的 Mockup 图
type PositionGroup struct {
	PositionIndex int
	Label         string
	Images        []model.MockupImage
}

// PositionLabel 机位展示名
func PositionLabel(positionIndex int) string {
	if positionIndex >= 0 && positionIndex < len(positionLabels) {
		return positionLabels[positionIndex]
	}
	return fmt.Sprintf("位置 %d", positionIndex+1)
}

// BuildPositionGroups 按机位对 Mockup 图分组。
// 仅纳入建品成功（done）产品的图片，空组省略，组按机位升序。
func BuildPositionGroups(products []model.MockupProduct, images []model.MockupImage) []PositionGroup {
	doneIDs := make(map[int64]bool)
	for i := range products {
		if products[i].IsDone() {
			doneIDs[products[i].ID] = true
		}
	}

	byPosition := make(map[int][]model.MockupImage)
	maxPosition := -1
	for i := range images {
		img := images[i]
		if !doneIDs[img.MockupProductID] {
			continue
		}
		byPosition[img.PositionIndex] = append(byPosition[img.PositionIndex], img)
		if img.PositionIndex > maxPosition {
			maxPosition = img.PositionIndex
		}
	}

	var groups []PositionGroup
	for pos := 0; pos <= maxPosition; pos++ {
		entries, ok := byPosition[pos]
		if !ok || len(entries) == 0 {
			continue
		}
		groups = append(groups, PositionGroup{
			PositionIndex: pos,
			Label:         PositionLabel(pos),
			Images:        entries,
		})
	}
	return groups
}

// BulkToggleTarget 整组勾选的目标状态：全部已选则取消全选，否则全选
func BulkToggleTarget(images []model.MockupImage) bool {
	for i := range images {
		if !images[i].Selected {
			return true
		}
	}
	return false
}

// ==================== 变体匹配 ====================

// SelectedMockup 参与匹配的已选 Mockup 图
type SelectedMockup struct {
	Color     string
	Src       string
	FrameKeys []string
}

// MappingRow 单个目录变体的匹配结果
type MappingRow struct {
	VariantID       int64
	VariantTitle    string
	BackgroundColor string
	FrameColor      string
	IsSeed          bool
	MockupSrcs      []string
}

// frameMatches 画框过滤：变体无画框值时不过滤；
// 图片未限定画框时匹配任意画框；否则按归一化标识求交。
func frameMatches(variantFrame string, imageFrameKeys []string) bool {
	if variantFrame == "" {
		return true
	}
	if len(imageFrameKeys) == 0 {
		return true
	}
	want := NormalizeFrameKey(variantFrame)
	for _, key := range imageFrameKeys {
		if key == want {
			return true
		}
	}
	return false
}

// BuildMappingRows 为每个目录变体解析背景色/画框并挑选匹配的 Mockup。
// 种子色变体只用模板自带 Mockup；其余变体只用操作员选中的 Mockup。
// 零匹配是合法结果，由调用方汇报给操作员，不阻塞提交。
func BuildMappingRows(
	catalog *shopify.Product,
	axes ResolvedAxes,
	seedColor string,
	template *printify.TemplateProduct,
	selected []SelectedMockup,
) []MappingRow {
	frameIndex := TemplateFrameIndex(template)

	rows := make([]MappingRow, 0, len(catalog.Variants))
	for _, variant := range catalog.Variants {
		optionValues := make(map[string]string, len(variant.SelectedOptions))
		for _, opt := range variant.SelectedOptions {
			optionValues[opt.Name] = opt.Value
		}

		row := MappingRow{
			VariantID:    variant.ID,
			VariantTitle: variant.Title,
		}
		if axes.BackgroundColor != nil {
			row.BackgroundColor = optionValues[axes.BackgroundColor.Name]
		}
		if axes.FrameColor != nil {
			row.FrameColor = optionValues[axes.FrameColor.Name]
		}
		row.IsSeed = seedColor != "" && row.BackgroundColor == seedColor

		if row.IsSeed {
			for _, img := range template.Images {
				keys := ImageFrameKeys(img.VariantIDs, frameIndex)
				if frameMatches(row.FrameColor, keys) {
					row.MockupSrcs = append(row.MockupSrcs, img.Src)
				}
			}
		} else {
			for _, m := range selected {
				if m.Color != row.BackgroundColor {
					continue
				}
				if frameMatches(row.FrameColor, m.FrameKeys) {
					row.MockupSrcs = append(row.MockupSrcs, m.Src)
				}
			}
		}

		rows = append(rows, row)
	}
	return rows
}

// ==================== 指派去重 ====================

// BuildAssignments 把逐变体匹配结果压缩为按图片源去重的指派列表。
// 同一张图片无论被多少变体引用都只产生一条指派记录，
// 记录内变体顺序与图片首次出现顺序均保持遍历顺序。
// 第二个返回值为零匹配变体的标题列表（汇报用，不阻塞提交）。
func BuildAssignments(rows []MappingRow) ([]shopify.ImageAssignment, []string) {
	srcIndex := make(map[string]int)
	var assignments []shopify.ImageAssignment
	var unmapped []string

	for _, row := range rows {
		if len(row.MockupSrcs) == 0 {
			unmapped = append(unmapped, row.VariantTitle)
			continue
		}
		for _, src := range row.MockupSrcs {
			idx, ok := srcIndex[src]
			if !ok {
				idx = len(assignments)
				srcIndex[src] = idx
				assignments = append(assignments, shopify.ImageAssignment{ImageURL: src})
			}
			assignments[idx].VariantIDs = append(assignments[idx].VariantIDs, row.VariantID)
		}
	}

	return assignments, unmapped
}
