package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/getsops/sops/v3/decrypt"
)

const encryptedSuffix = ".enc.json"

// applySecretsFile はJSONファイルの {"ENV_NAME": "value"} を読み込み、
// 未設定の環境変数にのみ値を設定する。
// ファイル名が .enc.json で終わる場合はSOPSで復号してから読み込む。
func applySecretsFile(path string) error {
	values, err := readSecretsFile(path)
	if err != nil {
		return err
	}
	for key, val := range values {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("set %s from secrets file: %w", key, err)
		}
	}
	return nil
}

func readSecretsFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secrets file %s: %w", path, err)
	}

	if strings.HasSuffix(path, encryptedSuffix) {
		data, err = decrypt.Data(data, "json")
		if err != nil {
			return nil, fmt.Errorf("decrypt secrets file %s: %w", path, err)
		}
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse secrets file %s: %w", path, err)
	}
	return values, nil
}
