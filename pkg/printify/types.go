package printify

// ==========================================
// DTO: 用于对接 Printify 模板/上传/建品接口
// ==========================================

// ProductImage 产品的一张 Mockup 渲染图
// variant_ids 标记这张图覆盖了哪些变体（即哪些画框）
type ProductImage struct {
	Src        string  `json:"src"`
	VariantIDs []int64 `json:"variant_ids"`
}

// TemplateVariant 模板产品的变体（标题即画框名，如 "Poster Only"）
type TemplateVariant struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// TemplateProduct 模板产品（种子色商品在 Printify 侧的原始产品）
type TemplateProduct struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Images   []ProductImage    `json:"images"`
	Variants []TemplateVariant `json:"variants"`
}

// TemplateResp 模板详情响应
type TemplateResp struct {
	Product TemplateProduct `json:"product"`
}

// ==========================================
// 素材上传
// ==========================================

// UploadReq 上传图片素材请求（contents 为 base64 内容）
type UploadReq struct {
	FileName string `json:"file_name"`
	Contents string `json:"contents"`
}

// UploadResp 上传结果
type UploadResp struct {
	ID string `json:"id"`
}

// ==========================================
// 建品（按模板 + 新素材生成一个颜色的 Mockup 产品）
// ==========================================

// CreateProductReq 建品请求
type CreateProductReq struct {
	Template        TemplateProduct `json:"template"`
	UploadedImageID string          `json:"uploaded_image_id"`
	CustomTitle     string          `json:"custom_title"`
}

// CreatedProduct 新建的产品，images 即有序的 Mockup 列表
type CreatedProduct struct {
	ID     string         `json:"id"`
	Images []ProductImage `json:"images"`
}

// CreateProductResp 建品响应
type CreateProductResp struct {
	Product CreatedProduct `json:"product"`
}
