package templates

import "os"

const configTemplate = `# classify-server configuration
port: 8000
host: 0.0.0.0
environment: dev

model_path: mainModel.onnx
fallback_model_paths: ['mymodel.onnx']
labels_path: labels.txt
fallback_label_count: 60
fallback_label_prefix: Batik Pattern

# 0 derives the resolution from the model. A non-zero value must match a
# model with fixed spatial dimensions and sizes models with dynamic ones.
image_size: 0

top_k: 5
batch_top_k: 3
max_batch_size: 10

filesystem_type: local
archive_uploads: false

# s3:
#   endpoint_url: "https://nyc3.digitaloceanspaces.com"
#   region_name: "nyc3"
#   bucket_name: "classify-artifacts"
#   folder: "public"
#   public_url: ""

db:
  dsn: ""
`

const envTemplate = `# CLASSIFY_ONNXRUNTIME_LIB=/usr/lib/libonnxruntime.so
# CLASSIFY_S3_ACCESS_KEY=
# CLASSIFY_S3_SECRET_KEY=
`

func GetConfigTemplate() string {
	return configTemplate
}

func WriteConfig(path string) error {
	return writeTemplate(path, configTemplate)
}

func WriteEnv(path string) error {
	return writeTemplate(path, envTemplate)
}

func writeTemplate(path, content string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(content)
	return err
}
