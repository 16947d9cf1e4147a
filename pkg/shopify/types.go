package shopify

// ==========================================
// DTO: 用于接收 Shopify 商品接口返回的原始 JSON 数据
// ==========================================

// SelectedOption 变体已选的规格值
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variant 商品变体
type Variant struct {
	ID              int64            `json:"id"`
	Title           string           `json:"title"`
	SelectedOptions []SelectedOption `json:"selected_options"`
}

// ProductOption 商品的规格维度（如 Background Color / Size / Frame Color）
type ProductOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Product 商品主体
type Product struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Options  []ProductOption `json:"options"`
	Variants []Variant       `json:"variants"`
}

// ProductResp 商品详情响应
type ProductResp struct {
	Product Product `json:"product"`
}

// ==========================================
// 图片分配提交
// ==========================================

// ImageAssignment 一张图片对应的变体列表
// 同一张图片被多个变体共用时只提交一条记录
type ImageAssignment struct {
	ImageURL   string  `json:"image_url"`
	VariantIDs []int64 `json:"variant_ids"`
}

// AssignmentReq 变体图片分配请求
type AssignmentReq struct {
	ProductID      int64             `json:"product_id"`
	Assignments    []ImageAssignment `json:"assignments"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}
