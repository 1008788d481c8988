package input

import (
	"context"
	"fmt"
	"os"

	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity/tls"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v2"
)

// Input 输入数据
// 功能：存储决策核心启动所需的全部输入
type Input struct {
	Programs map[string][]tls.Phase // tls id->静态相位目录
}

// catalogDoc 目录中单个路口的信号程序文档（YAML与MongoDB共用同一结构）
type catalogDoc struct {
	TLSID  string      `yaml:"tls_id" bson:"tls_id"`
	Phases []tls.Phase `yaml:"phases" bson:"phases"`
}

// Init 下载数据
// 功能：根据配置加载静态信号程序目录
// 参数：c-配置对象
// 返回：加载完成的输入数据
// 算法说明：
// 1. 指定了文件路径则从YAML文件加载
// 2. 否则从MongoDB指定集合加载全部文档
// 3. 校验目录非空且tls id不重复
// 说明：目录内容只在初始化时读取一次，之后只读
func Init(c config.Config) (*Input, error) {
	p := c.Input.Catalog
	var docs []catalogDoc
	if p.File != "" {
		log.Infof("load signal program catalog from file %s", p.File)
		raw, err := os.ReadFile(p.File)
		if err != nil {
			return nil, fmt.Errorf("load catalog file: %w", err)
		}
		if err := yaml.UnmarshalStrict(raw, &docs); err != nil {
			return nil, fmt.Errorf("parse catalog file: %w", err)
		}
	} else {
		if c.Input.URI == "" {
			return nil, fmt.Errorf("catalog requires either a file path or a mongodb uri")
		}
		log.Infof("load signal program catalog from %s.%s", p.DB, p.Col)
		loaded, err := loadFromMongo(c.Input.URI, p)
		if err != nil {
			return nil, err
		}
		docs = loaded
	}

	res := &Input{Programs: make(map[string][]tls.Phase, len(docs))}
	for _, doc := range docs {
		if _, ok := res.Programs[doc.TLSID]; ok {
			return nil, fmt.Errorf("duplicated tls id %s in catalog", doc.TLSID)
		}
		res.Programs[doc.TLSID] = doc.Phases
	}
	if len(res.Programs) == 0 {
		return nil, fmt.Errorf("empty signal program catalog")
	}
	return res, nil
}

// loadFromMongo 从MongoDB集合加载目录文档
func loadFromMongo(uri string, p config.InputPath) ([]catalogDoc, error) {
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	defer client.Disconnect(ctx)

	cur, err := client.Database(p.DB).Collection(p.Col).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find catalog in %s.%s: %w", p.DB, p.Col, err)
	}
	var docs []catalogDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode catalog in %s.%s: %w", p.DB, p.Col, err)
	}
	return docs, nil
}
