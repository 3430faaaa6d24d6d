package venue

import (
	"fmt"

	"arbibot/internal/config"
	"arbibot/pkg/crypto"
	"arbibot/pkg/utils"
)

// Build создаёт биржи по конфигурации и оборачивает их
// в rate limiting + retry декоратор.
//
// В dry-run режиме каждая биржа заменяется симулятором с балансами,
// достаточными для торговли по всем настроенным символам.
// В live режиме credentials расшифровываются AES-256-GCM ключом
// из конфигурации и передаются реальному адаптеру.
func Build(cfg *config.Config) (map[string]Venue, error) {
	venues := make(map[string]Venue, len(cfg.Venues))

	for _, vc := range cfg.Venues {
		var inner Venue

		if cfg.Trading.DryRun || vc.Name == "sim" {
			inner = buildSim(vc, cfg.Trading.Symbols)
		} else {
			creds, err := decryptCredentials(vc, cfg.Security.EncryptionKey)
			if err != nil {
				return nil, fmt.Errorf("venue %s: %w", vc.Name, err)
			}
			live, err := buildLive(vc, creds)
			if err != nil {
				return nil, err
			}
			inner = live
		}

		venues[vc.Name] = NewThrottled(inner, vc.RateLimit, vc.Burst)
	}

	return venues, nil
}

// buildSim создаёт симулятор с начальными балансами:
// 100k котировочной валюты и 10 единиц базовой на каждый символ
func buildSim(vc config.VenueConfig, symbols []string) *SimVenue {
	sim := NewSimVenue(vc.Name, vc.Fee)
	for _, symbol := range symbols {
		sim.SetBalance(utils.ExtractQuoteCurrency(symbol), 100_000)
		sim.SetBalance(utils.ExtractBaseCurrency(symbol), 10)
	}
	return sim
}

// buildLive создаёт реальный адаптер биржи.
// Адаптеры конкретных бирж подключаются здесь по мере реализации.
func buildLive(vc config.VenueConfig, creds crypto.Credentials) (Venue, error) {
	return nil, fmt.Errorf("venue %s: live adapter not implemented, use DRY_RUN=true", vc.Name)
}

// decryptCredentials расшифровывает API ключи биржи
func decryptCredentials(vc config.VenueConfig, key string) (crypto.Credentials, error) {
	if vc.APIKey == "" || vc.APISecret == "" {
		return crypto.Credentials{}, fmt.Errorf("missing API credentials")
	}

	creds, err := crypto.DecryptCredentials(crypto.Credentials{
		APIKey:    vc.APIKey,
		APISecret: vc.APISecret,
	}, []byte(key))
	if err != nil {
		return crypto.Credentials{}, fmt.Errorf("decrypt credentials: %w", err)
	}

	if err := utils.ValidateAPIKey(creds.APIKey); err != nil {
		return crypto.Credentials{}, err
	}
	if err := utils.ValidateAPISecret(creds.APISecret); err != nil {
		return crypto.Credentials{}, err
	}

	return creds, nil
}
