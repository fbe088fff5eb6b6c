package api

import (
	"net/http"

	"coffeecoin/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ConfigStore 配置覆盖项存储，*config.DatabaseConfig满足该接口
type ConfigStore interface {
	ListConfigs() (map[string]string, error)
	UpdateConfig(key, value string) error
}

// ConfigManager 配置覆盖项管理，修改在下次启动时生效
type ConfigManager struct {
	store  ConfigStore
	logger *logrus.Logger
}

// NewConfigManager 创建配置管理器
func NewConfigManager(store ConfigStore, logger *logrus.Logger) *ConfigManager {
	return &ConfigManager{
		store:  store,
		logger: logger,
	}
}

// ListConfig 列出所有启用的覆盖项
func (cm *ConfigManager) ListConfig(c *gin.Context) {
	configs, err := cm.store.ListConfigs()
	if err != nil {
		cm.logger.Errorf("获取配置失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list config overrides."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

// UpdateConfig 更新单个覆盖项，键和值先在默认配置上试用
func (cm *ConfigManager) UpdateConfig(c *gin.Context) {
	var req struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'key' in request body."})
		return
	}

	probe := config.GetDefaultConfig()
	if err := config.ApplyOverride(probe, req.Key, req.Value); err != nil {
		cm.logger.WithField("key", req.Key).Debugf("拒绝无效的配置覆盖项: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid config override.", "field": req.Key})
		return
	}

	if err := cm.store.UpdateConfig(req.Key, req.Value); err != nil {
		cm.logger.Errorf("更新配置失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update config override."})
		return
	}

	cm.logger.WithField("key", req.Key).Info("配置覆盖项已更新，重启后生效")
	c.JSON(http.StatusOK, gin.H{
		"message": "Config override saved. Restart to apply.",
		"key":     req.Key,
		"value":   req.Value,
	})
}
