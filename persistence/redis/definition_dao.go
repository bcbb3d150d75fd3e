package redis

import (
	"context"
	"errors"
	"sort"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/loanwizard/logger"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/persistence"
	"github.com/mohitkumar/loanwizard/util"
	"go.uber.org/zap"
)

var _ persistence.DefinitionDao = new(redisDefinitionDao)

// Definitions live in one hash keyed by wizard type.
type redisDefinitionDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.WizardDefinition]
}

func NewRedisDefinitionDao(conf Config, encoderDecoder util.EncoderDecoder[model.WizardDefinition]) *redisDefinitionDao {
	return &redisDefinitionDao{
		baseDao:        newBaseDao(conf),
		encoderDecoder: encoderDecoder,
	}
}

func (d *redisDefinitionDao) key() string {
	return d.getNamespaceKey(persistence.WIZARD_PREFIX)
}

func (d *redisDefinitionDao) SaveWizardDefinition(def model.WizardDefinition) error {
	data, err := d.encoderDecoder.Encode(def)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := d.redisClient.HSet(ctx, d.key(), []string{string(def.Type), string(data)}).Err(); err != nil {
		logger.Error("error in saving wizard definition", zap.String("wizard", string(def.Type)), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *redisDefinitionDao) DeleteWizardDefinition(wizardType model.WizardType) error {
	ctx := context.Background()
	if err := d.redisClient.HDel(ctx, d.key(), string(wizardType)).Err(); err != nil {
		logger.Error("error in deleting wizard definition", zap.String("wizard", string(wizardType)), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *redisDefinitionDao) GetWizardDefinition(wizardType model.WizardType) (*model.WizardDefinition, error) {
	ctx := context.Background()
	val, err := d.redisClient.HGet(ctx, d.key(), string(wizardType)).Result()
	if errors.Is(err, rd.Nil) {
		return nil, persistence.NotFoundError{Key: string(wizardType)}
	}
	if err != nil {
		logger.Error("error in getting wizard definition", zap.String("wizard", string(wizardType)), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return d.encoderDecoder.Decode([]byte(val))
}

func (d *redisDefinitionDao) ListWizardDefinitions() ([]model.WizardDefinition, error) {
	ctx := context.Background()
	vals, err := d.redisClient.HGetAll(ctx, d.key()).Result()
	if err != nil {
		logger.Error("error in listing wizard definitions", zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defs := make([]model.WizardDefinition, 0, len(vals))
	for wizardType, val := range vals {
		def, err := d.encoderDecoder.Decode([]byte(val))
		if err != nil {
			logger.Warn("skipping undecodable wizard definition", zap.String("wizard", wizardType), zap.Error(err))
			continue
		}
		defs = append(defs, *def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	return defs, nil
}
